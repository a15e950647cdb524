package medrecord

import "time"

type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "PENDING"
	PrescriptionDispensed PrescriptionStatus = "DISPENSED"
)

// PrescribedMedication is one line item of a prescription.
type PrescribedMedication struct {
	ID          string
	DiagnosisID string
	MedicineID  string
	Quantity    int
	PeriodDays  int
	Dosage      string
	Status      PrescriptionStatus
}

// Prescription belongs to exactly one diagnosis and is keyed by it.
type Prescription struct {
	DiagnosisID string
	Date        time.Time
	Medications []PrescribedMedication
}

// Dispensed is derived from the line items on every call and is never
// stored. A prescription without line items is not dispensed.
func (p *Prescription) Dispensed() bool {
	if p == nil || len(p.Medications) == 0 {
		return false
	}
	for _, m := range p.Medications {
		if m.Status != PrescriptionDispensed {
			return false
		}
	}
	return true
}

// Medication returns the line item for medicineID.
func (p *Prescription) Medication(medicineID string) (*PrescribedMedication, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Medications {
		if p.Medications[i].MedicineID == medicineID {
			return &p.Medications[i], true
		}
	}
	return nil, false
}

type Treatment struct {
	Description string
	StartDate   time.Time
}

type Diagnosis struct {
	ID              string
	PatientID       string
	DoctorID        string
	MedicalRecordID string
	Date            time.Time
	Description     string
	Treatment       *Treatment
	Prescription    *Prescription
}

// MedicalRecord is kept per (patient, doctor) pair.
type MedicalRecord struct {
	ID        string
	PatientID string
	DoctorID  string
	BloodType string
	Allergies []string
	Diagnoses []Diagnosis
}
