package medrecord

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrRecordNotFound       = errors.New("medical record not found")
	ErrDiagnosisNotFound    = errors.New("diagnosis not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// Repository contains the storage operations for records, diagnoses and
// prescriptions. Reads return hydrated copies.
type Repository interface {
	GetRecord(ctx context.Context, id string) (*MedicalRecord, error)
	FindRecord(ctx context.Context, patientID, doctorID string) (*MedicalRecord, error)
	RecordsForPatient(ctx context.Context, patientID string) ([]MedicalRecord, error)
	RecordsForDoctor(ctx context.Context, doctorID string) ([]MedicalRecord, error)
	// EnsureRecord returns the pair's record, creating it with an id from ids
	// when there is none. created reports which happened.
	EnsureRecord(ctx context.Context, patientID, doctorID string, ids store.IDGenerator) (rec *MedicalRecord, created bool, err error)
	UpdateRecord(ctx context.Context, id string, fn func(r *MedicalRecord)) (*MedicalRecord, error)

	GetDiagnosis(ctx context.Context, id string) (*Diagnosis, error)
	CreateDiagnosis(ctx context.Context, d *Diagnosis, ids store.IDGenerator) error
	SaveDiagnosis(ctx context.Context, d *Diagnosis) error

	GetPrescription(ctx context.Context, diagnosisID string) (*Prescription, error)
	// CreatePrescription stores p with line item ids drawn from ids. It fails
	// with ErrPrescriptionExists if the diagnosis already has one.
	CreatePrescription(ctx context.Context, p *Prescription, ids store.IDGenerator) error

	RecordIDs() []string
	DiagnosisIDs() []string
	LineItemIDs() []string
}
