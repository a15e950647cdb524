package console

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/authorize"
)

func (a *App) patientMenu(uid string) []menuItem {
	return []menuItem{
		{"View medical records", authorize.ResourceMedRecord, authorize.ActionRead, func(ctx context.Context) error {
			recs, err := a.Records.RecordsForPatient(ctx, uid)
			if err != nil {
				return err
			}
			renderRecords(a.out, recs)
			return nil
		}},
		{"Update contact information", authorize.ResourceProfile, authorize.ActionWrite, func(ctx context.Context) error {
			email, err := a.p.ReadLine("Email: ")
			if err != nil {
				return err
			}
			phone, err := a.p.ReadLine("Phone: ")
			if err != nil {
				return err
			}
			if _, err := a.Accounts.UpdateContact(ctx, uid, email, phone); err != nil {
				return err
			}
			a.p.Println("Contact information updated.")
			return nil
		}},
		{"View available appointment slots", authorize.ResourceAppointment, authorize.ActionRead, func(ctx context.Context) error {
			slots, err := a.Slots.AvailableSlots(ctx)
			if err != nil {
				return err
			}
			renderAppointments(a.out, slots)
			return nil
		}},
		{"Schedule an appointment", authorize.ResourceAppointment, authorize.ActionBook, func(ctx context.Context) error {
			return a.bookSlot(ctx, uid)
		}},
		{"Reschedule an appointment", authorize.ResourceAppointment, authorize.ActionBook, func(ctx context.Context) error {
			return a.reschedule(ctx, uid)
		}},
		{"Cancel an appointment", authorize.ResourceAppointment, authorize.ActionBook, func(ctx context.Context) error {
			return a.cancel(ctx, uid)
		}},
		{"View scheduled appointments", authorize.ResourceAppointment, authorize.ActionRead, func(ctx context.Context) error {
			slots, err := a.Slots.AllForPatient(ctx, uid)
			if err != nil {
				return err
			}
			renderAppointments(a.out, slots)
			return nil
		}},
		{"Review declined appointments", authorize.ResourceAppointment, authorize.ActionBook, func(ctx context.Context) error {
			return a.acknowledgeDeclines(ctx, uid)
		}},
		{"View past appointment outcome records", authorize.ResourceOutcome, authorize.ActionRead, func(ctx context.Context) error {
			records, err := a.Outcomes.ForPatient(ctx, uid)
			if err != nil {
				return err
			}
			renderOutcomes(a.out, records)
			return nil
		}},
		a.changePasswordItem(),
	}
}

func (a *App) bookSlot(ctx context.Context, uid string) error {
	slots, err := a.Slots.AvailableSlots(ctx)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		a.p.Println("No slots are available.")
		return nil
	}
	renderAppointments(a.out, slots)
	id, err := a.p.ReadRequired("Slot ID to book: ")
	if err != nil {
		return err
	}
	booked, err := a.Slots.Book(ctx, id, uid)
	if err != nil {
		return err
	}
	a.p.Printf("Requested %s with %s at %s. Waiting for the doctor to accept.\n",
		booked.ID, booked.DoctorID, booked.Time.Format(DateTimeLayout))
	return nil
}

func (a *App) reschedule(ctx context.Context, uid string) error {
	confirmed, err := a.Slots.ConfirmedForPatient(ctx, uid)
	if err != nil {
		return err
	}
	if len(confirmed) == 0 {
		a.p.Println("You have no confirmed appointments.")
		return nil
	}
	renderAppointments(a.out, confirmed)
	from, err := a.p.ReadRequired("Appointment ID to move: ")
	if err != nil {
		return err
	}
	open, err := a.Slots.AvailableSlots(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		a.p.Println("No slots are available.")
		return nil
	}
	renderAppointments(a.out, open)
	to, err := a.p.ReadRequired("New slot ID: ")
	if err != nil {
		return err
	}
	moved, err := a.Slots.Reschedule(ctx, uid, from, to)
	if err != nil {
		return err
	}
	a.p.Printf("Moved to %s at %s. Waiting for the doctor to accept.\n", moved.ID, moved.Time.Format(DateTimeLayout))
	return nil
}

func (a *App) cancel(ctx context.Context, uid string) error {
	confirmed, err := a.Slots.ConfirmedForPatient(ctx, uid)
	if err != nil {
		return err
	}
	if len(confirmed) == 0 {
		a.p.Println("You have no confirmed appointments.")
		return nil
	}
	renderAppointments(a.out, confirmed)
	id, err := a.p.ReadRequired("Appointment ID to cancel: ")
	if err != nil {
		return err
	}
	ok, err := a.p.Confirm("Cancel " + id + "?")
	if err != nil || !ok {
		return err
	}
	if _, err := a.Slots.Cancel(ctx, id, uid); err != nil {
		return err
	}
	a.p.Println("Appointment canceled.")
	return nil
}

func (a *App) acknowledgeDeclines(ctx context.Context, uid string) error {
	declined, err := a.Slots.CanceledForPatient(ctx, uid)
	if err != nil {
		return err
	}
	if len(declined) == 0 {
		a.p.Println("No declined appointments.")
		return nil
	}
	for _, slot := range declined {
		renderAppointments(a.out, []appointment.Appointment{slot})
		yes, err := a.p.Confirm("The doctor declined this appointment. Acknowledge")
		if err != nil {
			return err
		}
		_, err = a.Slots.Acknowledge(ctx, slot.ID, uid, yes)
		switch {
		case errors.Is(err, appointment.ErrAcknowledgementDeclined):
			a.p.Println("Left for later.")
		case err != nil:
			return err
		default:
			a.p.Println("Acknowledged.")
		}
	}
	return nil
}
