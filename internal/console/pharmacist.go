package console

import (
	"context"

	"github.com/hackgods/hospital-management-system/internal/authorize"
)

func (a *App) pharmacistMenu(uid string) []menuItem {
	return []menuItem{
		{"View prescriptions awaiting dispense", authorize.ResourceOutcome, authorize.ActionRead, func(ctx context.Context) error {
			pending, err := a.Outcomes.PendingDispense(ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				a.p.Println("Nothing to dispense.")
				return nil
			}
			for _, r := range pending {
				a.p.Printf("\n%s  patient %s  doctor %s  %s\n", r.ID, r.PatientID, r.DoctorID, r.AppointmentTime.Format(DateTimeLayout))
				renderPrescription(a.out, r.Prescription)
			}
			return nil
		}},
		{"Dispense medication", authorize.ResourcePrescription, authorize.ActionDispense, func(ctx context.Context) error {
			patientID, err := a.p.ReadRequired("Patient ID: ")
			if err != nil {
				return err
			}
			outcomeID, err := a.p.ReadRequired("Outcome record ID: ")
			if err != nil {
				return err
			}
			medicineID, err := a.p.ReadRequired("Medicine ID: ")
			if err != nil {
				return err
			}
			r, err := a.Outcomes.DispenseMedication(ctx, patientID, outcomeID, medicineID)
			if err != nil {
				return err
			}
			renderPrescription(a.out, r.Prescription)
			return nil
		}},
		{"View medication inventory", authorize.ResourceMedicine, authorize.ActionRead, func(ctx context.Context) error {
			meds, err := a.Medicines.List(ctx)
			if err != nil {
				return err
			}
			renderMedicines(a.out, meds)
			return nil
		}},
		{"Submit replenishment request", authorize.ResourceReplenish, authorize.ActionRequest, func(ctx context.Context) error {
			low, err := a.Medicines.LowStock(ctx)
			if err != nil {
				return err
			}
			if len(low) > 0 {
				a.p.Println("Medicines at or below their alert level:")
				renderMedicines(a.out, low)
			}
			id, err := a.p.ReadRequired("Medicine ID: ")
			if err != nil {
				return err
			}
			m, err := a.Medicines.RequestReplenishment(ctx, id, uid)
			if err != nil {
				return err
			}
			a.p.Printf("Requested %d units of %s.\n", m.ReplenishmentStock, m.Name)
			return nil
		}},
		a.changePasswordItem(),
	}
}
