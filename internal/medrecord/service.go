package medrecord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrPrescriptionExists  = errors.New("diagnosis already has a prescription")
	ErrUnknownMedicine     = errors.New("medicine not in inventory")
	ErrDuplicateMedication = errors.New("medicine prescribed twice")
	ErrInvalidLineItem     = errors.New("invalid prescription line item")
	ErrEmptyPrescription   = errors.New("prescription has no line items")
	ErrNotDiagnosingDoctor = errors.New("only the diagnosing doctor may change this diagnosis")
	ErrInvalidDiagnosis    = errors.New("invalid diagnosis")
)

// MedicineChecker is the slice of the inventory a prescription needs.
type MedicineChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// IDs groups the generators for each record kind.
type IDs struct {
	Records   store.IDGenerator
	Diagnoses store.IDGenerator
	LineItems store.IDGenerator
}

// LineItem is a medication requested on a new prescription.
type LineItem struct {
	MedicineID string
	Quantity   int
	PeriodDays int
	Dosage     string
}

type Service struct {
	repo      Repository
	medicines MedicineChecker
	ids       IDs
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, medicines MedicineChecker, ids IDs, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, medicines: medicines, ids: ids, log: log, now: time.Now}
}

// EnsureRecord returns the record for the (patient, doctor) pair, creating
// an empty one if none exists yet.
func (s *Service) EnsureRecord(ctx context.Context, patientID, doctorID string) (*MedicalRecord, error) {
	rec, created, err := s.repo.EnsureRecord(ctx, patientID, doctorID, s.ids.Records)
	if err != nil {
		return nil, fmt.Errorf("create medical record: %w", err)
	}
	if !created {
		return rec, nil
	}
	s.log.Info("medical record created",
		zap.String("record_id", rec.ID),
		zap.String("patient_id", patientID),
		zap.String("doctor_id", doctorID),
	)
	return rec, nil
}

func (s *Service) RecordFor(ctx context.Context, patientID, doctorID string) (*MedicalRecord, error) {
	return s.repo.FindRecord(ctx, patientID, doctorID)
}

func (s *Service) RecordsForPatient(ctx context.Context, patientID string) ([]MedicalRecord, error) {
	return s.repo.RecordsForPatient(ctx, patientID)
}

// PatientsForDoctor lists the distinct patients a doctor holds records for.
func (s *Service) PatientsForDoctor(ctx context.Context, doctorID string) ([]string, error) {
	recs, err := s.repo.RecordsForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(recs))
	var out []string
	for _, r := range recs {
		if !seen[r.PatientID] {
			seen[r.PatientID] = true
			out = append(out, r.PatientID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// AddDiagnosis appends a diagnosis to the doctor's record for the patient.
func (s *Service) AddDiagnosis(ctx context.Context, patientID, doctorID, description string) (*Diagnosis, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidDiagnosis)
	}
	rec, err := s.EnsureRecord(ctx, patientID, doctorID)
	if err != nil {
		return nil, err
	}

	d := &Diagnosis{
		PatientID:       patientID,
		DoctorID:        doctorID,
		MedicalRecordID: rec.ID,
		Date:            s.now(),
		Description:     description,
	}
	if err := s.repo.CreateDiagnosis(ctx, d, s.ids.Diagnoses); err != nil {
		return nil, fmt.Errorf("add diagnosis: %w", err)
	}
	s.log.Info("diagnosis added",
		zap.String("diagnosis_id", d.ID),
		zap.String("record_id", rec.ID),
	)
	return d, nil
}

func (s *Service) SetTreatment(ctx context.Context, diagnosisID, doctorID, description string, start time.Time) (*Diagnosis, error) {
	d, err := s.ownedDiagnosis(ctx, diagnosisID, doctorID)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = s.now()
	}
	d.Treatment = &Treatment{Description: strings.TrimSpace(description), StartDate: start}
	if err := s.repo.SaveDiagnosis(ctx, d); err != nil {
		return nil, fmt.Errorf("set treatment: %w", err)
	}
	return d, nil
}

// Prescribe attaches a prescription to a diagnosis. Every line item starts
// PENDING and must name a medicine the inventory knows.
func (s *Service) Prescribe(ctx context.Context, diagnosisID, doctorID string, items []LineItem) (*Prescription, error) {
	d, err := s.ownedDiagnosis(ctx, diagnosisID, doctorID)
	if err != nil {
		return nil, err
	}
	if d.Prescription != nil {
		return nil, fmt.Errorf("%w: %s", ErrPrescriptionExists, diagnosisID)
	}
	if len(items) == 0 {
		return nil, ErrEmptyPrescription
	}

	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.Quantity <= 0 || it.PeriodDays <= 0 {
			return nil, fmt.Errorf("%w: %s quantity and period must be positive", ErrInvalidLineItem, it.MedicineID)
		}
		if seen[it.MedicineID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMedication, it.MedicineID)
		}
		seen[it.MedicineID] = true
		ok, err := s.medicines.Exists(ctx, it.MedicineID)
		if err != nil {
			return nil, fmt.Errorf("check medicine %s: %w", it.MedicineID, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMedicine, it.MedicineID)
		}
	}

	p := &Prescription{DiagnosisID: diagnosisID, Date: s.now()}
	for _, it := range items {
		p.Medications = append(p.Medications, PrescribedMedication{
			DiagnosisID: diagnosisID,
			MedicineID:  it.MedicineID,
			Quantity:    it.Quantity,
			PeriodDays:  it.PeriodDays,
			Dosage:      strings.TrimSpace(it.Dosage),
			Status:      PrescriptionPending,
		})
	}
	if err := s.repo.CreatePrescription(ctx, p, s.ids.LineItems); err != nil {
		return nil, fmt.Errorf("prescribe: %w", err)
	}
	s.log.Info("prescription created",
		zap.String("diagnosis_id", diagnosisID),
		zap.Int("line_items", len(p.Medications)),
	)
	return p, nil
}

func (s *Service) PrescriptionFor(ctx context.Context, diagnosisID string) (*Prescription, error) {
	return s.repo.GetPrescription(ctx, diagnosisID)
}

func (s *Service) Diagnosis(ctx context.Context, id string) (*Diagnosis, error) {
	return s.repo.GetDiagnosis(ctx, id)
}

func (s *Service) UpdateAllergies(ctx context.Context, recordID string, allergies []string) (*MedicalRecord, error) {
	var clean []string
	for _, a := range allergies {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	return s.mutateRecord(ctx, recordID, func(r *MedicalRecord) { r.Allergies = clean })
}

func (s *Service) SetBloodType(ctx context.Context, recordID, bloodType string) (*MedicalRecord, error) {
	bt := strings.ToUpper(strings.TrimSpace(bloodType))
	return s.mutateRecord(ctx, recordID, func(r *MedicalRecord) { r.BloodType = bt })
}

func (s *Service) mutateRecord(ctx context.Context, id string, fn func(r *MedicalRecord)) (*MedicalRecord, error) {
	rec, err := s.repo.UpdateRecord(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("update medical record %s: %w", id, err)
	}
	return rec, nil
}

func (s *Service) ownedDiagnosis(ctx context.Context, diagnosisID, doctorID string) (*Diagnosis, error) {
	d, err := s.repo.GetDiagnosis(ctx, diagnosisID)
	if err != nil {
		return nil, err
	}
	if d.DoctorID != doctorID {
		return nil, ErrNotDiagnosingDoctor
	}
	return d, nil
}
