package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/authorize"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
)

func (a *App) doctorMenu(uid string) []menuItem {
	return []menuItem{
		{"View patient medical records", authorize.ResourceMedRecord, authorize.ActionRead, func(ctx context.Context) error {
			return a.viewPatientRecord(ctx, uid)
		}},
		{"Update patient medical record", authorize.ResourceMedRecord, authorize.ActionWrite, func(ctx context.Context) error {
			return a.updateRecord(ctx, uid)
		}},
		{"Add a diagnosis", authorize.ResourceMedRecord, authorize.ActionWrite, func(ctx context.Context) error {
			patientID, err := a.p.ReadRequired("Patient ID: ")
			if err != nil {
				return err
			}
			_, err = a.addDiagnosis(ctx, uid, patientID)
			return err
		}},
		{"View personal schedule", authorize.ResourceSchedule, authorize.ActionRead, func(ctx context.Context) error {
			slots, err := a.Slots.ForDoctor(ctx, uid)
			if err != nil {
				return err
			}
			renderAppointments(a.out, slots)
			return nil
		}},
		{"Open an appointment slot", authorize.ResourceSchedule, authorize.ActionWrite, func(ctx context.Context) error {
			at, err := a.p.ReadDateTime("Time (YYYY-MM-DD HH:MM): ")
			if err != nil {
				return err
			}
			location, err := a.p.ReadLine("Location: ")
			if err != nil {
				return err
			}
			slot, err := a.Slots.OpenSlot(ctx, uid, at, location)
			if err != nil {
				return err
			}
			a.p.Printf("Opened %s.\n", slot.ID)
			return nil
		}},
		{"Set availability for a period", authorize.ResourceSchedule, authorize.ActionWrite, func(ctx context.Context) error {
			return a.generateAvailability(ctx, uid)
		}},
		{"Accept or decline appointment requests", authorize.ResourceAppointment, authorize.ActionDecide, func(ctx context.Context) error {
			return a.reviewRequests(ctx, uid)
		}},
		{"View upcoming appointments", authorize.ResourceAppointment, authorize.ActionRead, func(ctx context.Context) error {
			slots, err := a.Slots.ForDoctor(ctx, uid, appointment.StatusConfirmed)
			if err != nil {
				return err
			}
			renderAppointments(a.out, slots)
			return nil
		}},
		{"Record appointment outcome", authorize.ResourceOutcome, authorize.ActionWrite, func(ctx context.Context) error {
			return a.recordOutcome(ctx, uid)
		}},
		a.changePasswordItem(),
	}
}

func (a *App) viewPatientRecord(ctx context.Context, uid string) error {
	patients, err := a.Records.PatientsForDoctor(ctx, uid)
	if err != nil {
		return err
	}
	if len(patients) == 0 {
		a.p.Println("You hold no medical records yet.")
		return nil
	}
	a.p.Printf("Your patients: %s\n", strings.Join(patients, ", "))
	patientID, err := a.p.ReadRequired("Patient ID: ")
	if err != nil {
		return err
	}
	rec, err := a.Records.RecordFor(ctx, patientID, uid)
	if err != nil {
		return err
	}
	renderRecords(a.out, []medrecord.MedicalRecord{*rec})
	return nil
}

func (a *App) updateRecord(ctx context.Context, uid string) error {
	patientID, err := a.p.ReadRequired("Patient ID: ")
	if err != nil {
		return err
	}
	rec, err := a.Records.EnsureRecord(ctx, patientID, uid)
	if err != nil {
		return err
	}
	bloodType, err := a.p.ReadLine(fmt.Sprintf("Blood type [%s]: ", rec.BloodType))
	if err != nil {
		return err
	}
	if bloodType != "" {
		if rec, err = a.Records.SetBloodType(ctx, rec.ID, bloodType); err != nil {
			return err
		}
	}
	allergies, err := a.p.ReadLine(fmt.Sprintf("Allergies, comma separated [%s]: ", strings.Join(rec.Allergies, ", ")))
	if err != nil {
		return err
	}
	if allergies != "" {
		if _, err := a.Records.UpdateAllergies(ctx, rec.ID, strings.Split(allergies, ",")); err != nil {
			return err
		}
	}
	a.p.Println("Medical record updated.")
	return nil
}

// addDiagnosis records a diagnosis with an optional treatment and
// prescription.
func (a *App) addDiagnosis(ctx context.Context, uid, patientID string) (*medrecord.Diagnosis, error) {
	desc, err := a.p.ReadRequired("Diagnosis: ")
	if err != nil {
		return nil, err
	}
	d, err := a.Records.AddDiagnosis(ctx, patientID, uid, desc)
	if err != nil {
		return nil, err
	}
	a.p.Printf("Added diagnosis %s.\n", d.ID)

	treatment, err := a.p.ReadLine("Treatment (blank for none): ")
	if err != nil {
		return d, err
	}
	if treatment != "" {
		if d, err = a.Records.SetTreatment(ctx, d.ID, uid, treatment, time.Time{}); err != nil {
			return d, err
		}
	}

	prescribe, err := a.p.Confirm("Add a prescription")
	if err != nil || !prescribe {
		return d, err
	}
	var items []medrecord.LineItem
	for {
		medID, err := a.p.ReadRequired("Medicine ID: ")
		if err != nil {
			return d, err
		}
		qty, err := a.p.ReadInt("Quantity: ", 1, 1000)
		if err != nil {
			return d, err
		}
		days, err := a.p.ReadInt("Period in days: ", 1, 365)
		if err != nil {
			return d, err
		}
		dosage, err := a.p.ReadLine("Dosage: ")
		if err != nil {
			return d, err
		}
		items = append(items, medrecord.LineItem{MedicineID: medID, Quantity: qty, PeriodDays: days, Dosage: dosage})
		more, err := a.p.Confirm("Add another medicine")
		if err != nil {
			return d, err
		}
		if !more {
			break
		}
	}
	p, err := a.Records.Prescribe(ctx, d.ID, uid, items)
	if err != nil {
		return d, err
	}
	d.Prescription = p
	renderPrescription(a.out, p)
	return d, nil
}

func (a *App) generateAvailability(ctx context.Context, uid string) error {
	from, err := a.p.ReadDateTime("From (YYYY-MM-DD HH:MM): ")
	if err != nil {
		return err
	}
	to, err := a.p.ReadDateTime("Until (YYYY-MM-DD HH:MM): ")
	if err != nil {
		return err
	}
	minutes, err := a.p.ReadInt("Slot length in minutes: ", 5, 480)
	if err != nil {
		return err
	}
	location, err := a.p.ReadLine("Location: ")
	if err != nil {
		return err
	}
	created, err := a.Slots.GenerateAvailability(ctx, uid, from, to, time.Duration(minutes)*time.Minute, location)
	if err != nil {
		return err
	}
	a.p.Printf("Opened %d slots.\n", len(created))
	return nil
}

func (a *App) reviewRequests(ctx context.Context, uid string) error {
	pending, err := a.Slots.PendingForDoctor(ctx, uid)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.p.Println("No pending requests.")
		return nil
	}
	for _, slot := range pending {
		renderAppointments(a.out, []appointment.Appointment{slot})
		choice, err := a.p.Choose("Request from "+slot.PatientID, []string{"Accept", "Decline", "Skip"})
		if err != nil {
			return err
		}
		switch choice {
		case 0:
			_, err = a.Slots.Accept(ctx, slot.ID, uid)
		case 1:
			_, err = a.Slots.Decline(ctx, slot.ID, uid)
		default:
			continue
		}
		if err != nil {
			a.fail(err)
		}
	}
	return nil
}

func (a *App) recordOutcome(ctx context.Context, uid string) error {
	confirmed, err := a.Slots.ForDoctor(ctx, uid, appointment.StatusConfirmed)
	if err != nil {
		return err
	}
	var open []appointment.Appointment
	for _, s := range confirmed {
		if s.OutcomeID == "" {
			open = append(open, s)
		}
	}
	if len(open) == 0 {
		a.p.Println("No confirmed appointments are waiting for an outcome.")
		return nil
	}
	renderAppointments(a.out, open)
	slotID, err := a.p.ReadRequired("Appointment ID: ")
	if err != nil {
		return err
	}
	slot, err := a.Slots.Get(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.DoctorID != uid {
		return appointment.ErrNotSlotDoctor
	}

	rec, err := a.Records.EnsureRecord(ctx, slot.PatientID, uid)
	if err != nil {
		return err
	}
	diagnosisID, err := a.pickDiagnosis(ctx, uid, rec)
	if err != nil {
		return err
	}

	service, err := a.p.ReadRequired("Type of service: ")
	if err != nil {
		return err
	}
	notes, err := a.p.ReadLine("Consultation notes: ")
	if err != nil {
		return err
	}

	r, err := a.Outcomes.OpenOutcome(ctx, slot.ID, rec, diagnosisID, "", "")
	if err != nil {
		return err
	}
	if r, err = a.Outcomes.RecordConsultation(ctx, r.ID, service, notes); err != nil {
		return err
	}
	a.p.Printf("Outcome %s recorded.\n", r.ID)

	done, err := a.p.Confirm("Mark the appointment as completed")
	if err != nil || !done {
		return err
	}
	_, err = a.Slots.Complete(ctx, slot.ID, uid)
	return err
}

func (a *App) pickDiagnosis(ctx context.Context, uid string, rec *medrecord.MedicalRecord) (string, error) {
	options := []string{"New diagnosis"}
	for _, d := range rec.Diagnoses {
		options = append(options, d.ID+"  "+d.Date.Format(DateLayout)+"  "+d.Description)
	}
	i, err := a.p.Choose("Diagnosis for this outcome", options)
	if err != nil {
		return "", err
	}
	if i > 0 {
		return rec.Diagnoses[i-1].ID, nil
	}
	d, err := a.addDiagnosis(ctx, uid, rec.PatientID)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}
