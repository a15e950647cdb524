package outcome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/audit"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/metrics"
	redisclient "github.com/hackgods/hospital-management-system/internal/redis"
	"github.com/hackgods/hospital-management-system/internal/store"
)

const (
	EventOutcomeOpened        = "OUTCOME_OPENED"
	EventConsultationRecorded = "CONSULTATION_RECORDED"
	EventMedicationDispensed  = "MEDICATION_DISPENSED"
)

var (
	ErrSlotNotConfirmed        = errors.New("appointment is not confirmed")
	ErrRecordMismatch          = errors.New("medical record does not match the appointment")
	ErrOutcomeExists           = errors.New("appointment already has an outcome record")
	ErrOutcomeAlreadyComplete  = errors.New("outcome record is already complete")
	ErrInvalidStatusTransition = errors.New("invalid medication status transition")
	ErrOutcomeBusy             = errors.New("outcome record is being changed, please retry")
)

// Slots is the part of the appointment service the linker drives.
type Slots interface {
	Get(ctx context.Context, slotID string) (*appointment.Appointment, error)
	AttachOutcome(ctx context.Context, slotID, outcomeID string) (*appointment.Appointment, error)
}

// StockKeeper takes dispensed quantities out of the inventory.
type StockKeeper interface {
	Dispense(ctx context.Context, medicineID string, qty int) (*inventory.Medicine, error)
}

type Linker struct {
	repo     Repository
	slots    Slots
	stock    StockKeeper
	locker   redisclient.Locker
	recorder audit.Recorder
	ids      store.IDGenerator
	log      *zap.Logger
}

func NewLinker(repo Repository, slots Slots, stock StockKeeper, locker redisclient.Locker, recorder audit.Recorder, ids store.IDGenerator, log *zap.Logger) *Linker {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.Discard{}
	}
	return &Linker{
		repo:     repo,
		slots:    slots,
		stock:    stock,
		locker:   locker,
		recorder: recorder,
		ids:      ids,
		log:      log,
	}
}

// OpenOutcome creates an INCOMPLETE outcome for a confirmed slot. Patient and
// doctor are taken from the medical record and the diagnosis is trusted as
// given. The slot keeps its status and only gains a back-reference.
func (l *Linker) OpenOutcome(ctx context.Context, slotID string, rec *medrecord.MedicalRecord, diagnosisID, typeOfService, notes string) (*Record, error) {
	slot, err := l.slots.Get(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if slot.Status != appointment.StatusConfirmed {
		return nil, l.reject("open_outcome", fmt.Errorf("%w: %s is %s", ErrSlotNotConfirmed, slot.ID, slot.Status))
	}
	if slot.OutcomeID != "" {
		return nil, l.reject("open_outcome", fmt.Errorf("%w: %s", ErrOutcomeExists, slot.OutcomeID))
	}
	if rec == nil || rec.PatientID != slot.PatientID || rec.DoctorID != slot.DoctorID {
		return nil, l.reject("open_outcome", ErrRecordMismatch)
	}

	r := &Record{
		AppointmentID:     slot.ID,
		PatientID:         rec.PatientID,
		DoctorID:          rec.DoctorID,
		DiagnosisID:       diagnosisID,
		AppointmentTime:   slot.Time,
		TypeOfService:     strings.TrimSpace(typeOfService),
		ConsultationNotes: strings.TrimSpace(notes),
		Status:            StatusIncomplete,
	}
	if err := l.repo.Create(ctx, r, l.ids); err != nil {
		return nil, fmt.Errorf("open outcome: %w", err)
	}
	if _, err := l.slots.AttachOutcome(ctx, slot.ID, r.ID); err != nil {
		if delErr := l.repo.Delete(ctx, r.ID); delErr != nil {
			l.log.Error("unlinked outcome record left behind",
				zap.String("outcome_id", r.ID),
				zap.String("slot_id", slot.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("link outcome %s to %s: %w", r.ID, slot.ID, err)
	}

	saved, err := l.repo.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	l.logEvent(ctx, saved.ID, saved.DoctorID, EventOutcomeOpened, map[string]any{
		"appointment_id":   slot.ID,
		"diagnosis_id":     diagnosisID,
		"has_prescription": saved.Prescription != nil,
	})
	return saved, nil
}

// RecordConsultation fills in the consultation details and completes the
// record. It is the only way a record becomes COMPLETE.
func (l *Linker) RecordConsultation(ctx context.Context, outcomeID, typeOfService, notes string) (*Record, error) {
	var updated *Record
	err := l.locker.WithSlotLock(ctx, "outcome:"+outcomeID, func(lockCtx context.Context) error {
		r, err := l.repo.Update(lockCtx, outcomeID, func(r *Record) error {
			if r.Status == StatusComplete {
				return fmt.Errorf("%w: %s", ErrOutcomeAlreadyComplete, r.ID)
			}
			r.TypeOfService = strings.TrimSpace(typeOfService)
			r.ConsultationNotes = strings.TrimSpace(notes)
			r.Status = StatusComplete
			return nil
		})
		if err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, l.lockErr("record_consultation", err)
	}
	l.logEvent(ctx, updated.ID, updated.DoctorID, EventConsultationRecorded, map[string]any{
		"type_of_service": updated.TypeOfService,
	})
	return updated, nil
}

// UpdateMedicationStatus changes one line item of an outcome's prescription.
// The patient, the record and the medicine are looked up in turn and each
// miss has its own error. Only PENDING to DISPENSED is allowed.
func (l *Linker) UpdateMedicationStatus(ctx context.Context, patientID, outcomeID, medicineID string, status medrecord.PrescriptionStatus) (*Record, error) {
	var updated *Record
	err := l.locker.WithSlotLock(ctx, "outcome:"+outcomeID, func(lockCtx context.Context) error {
		r, item, err := l.locate(lockCtx, patientID, outcomeID, medicineID)
		if err != nil {
			return err
		}
		if err := checkItemTransition(item, status); err != nil {
			return err
		}
		updated, err = l.apply(lockCtx, r, item, status)
		return err
	})
	if err != nil {
		return nil, l.lockErr("update_medication_status", err)
	}
	return updated, nil
}

// DispenseMedication takes the line item's quantity out of stock and marks it
// DISPENSED. Insufficient stock leaves both untouched.
func (l *Linker) DispenseMedication(ctx context.Context, patientID, outcomeID, medicineID string) (*Record, error) {
	var updated *Record
	err := l.locker.WithSlotLock(ctx, "outcome:"+outcomeID, func(lockCtx context.Context) error {
		r, item, err := l.locate(lockCtx, patientID, outcomeID, medicineID)
		if err != nil {
			return err
		}
		if err := checkItemTransition(item, medrecord.PrescriptionDispensed); err != nil {
			return err
		}
		if _, err := l.stock.Dispense(lockCtx, item.MedicineID, item.Quantity); err != nil {
			return fmt.Errorf("dispense %s: %w", item.MedicineID, err)
		}
		updated, err = l.apply(lockCtx, r, item, medrecord.PrescriptionDispensed)
		if err != nil {
			l.log.Error("stock taken but line item not updated",
				zap.String("outcome_id", outcomeID),
				zap.String("medicine_id", medicineID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return nil, l.lockErr("dispense_medication", err)
	}
	return updated, nil
}

func (l *Linker) Get(ctx context.Context, outcomeID string) (*Record, error) {
	return l.repo.Get(ctx, outcomeID)
}

func (l *Linker) ForPatient(ctx context.Context, patientID string) ([]Record, error) {
	return l.repo.ForPatient(ctx, patientID)
}

func (l *Linker) ForDoctor(ctx context.Context, doctorID string) ([]Record, error) {
	return l.repo.ForDoctor(ctx, doctorID)
}

// PendingDispense lists records whose prescription still has undispensed
// line items.
func (l *Linker) PendingDispense(ctx context.Context) ([]Record, error) {
	all, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outcome records: %w", err)
	}
	var out []Record
	for _, r := range all {
		if r.Prescription != nil && len(r.Prescription.Medications) > 0 && !r.Prescription.Dispensed() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *Linker) locate(ctx context.Context, patientID, outcomeID, medicineID string) (*Record, *medrecord.PrescribedMedication, error) {
	records, err := l.repo.ForPatient(ctx, patientID)
	if err != nil {
		return nil, nil, fmt.Errorf("list outcome records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoOutcomesForPatient, patientID)
	}

	var r *Record
	for i := range records {
		if records[i].ID == outcomeID {
			r = &records[i]
			break
		}
	}
	if r == nil {
		return nil, nil, fmt.Errorf("%w: %s for patient %s", ErrOutcomeNotFound, outcomeID, patientID)
	}
	if r.Prescription == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPrescription, r.ID)
	}

	item, ok := r.Prescription.Medication(medicineID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s in %s", ErrMedicationNotFound, medicineID, r.ID)
	}
	return r, item, nil
}

func (l *Linker) apply(ctx context.Context, r *Record, item *medrecord.PrescribedMedication, status medrecord.PrescriptionStatus) (*Record, error) {
	changed := *item
	changed.Status = status
	if err := l.repo.SaveLineItem(ctx, r.ID, changed); err != nil {
		return nil, err
	}
	item.Status = status

	l.logEvent(ctx, r.ID, r.PatientID, EventMedicationDispensed, map[string]any{
		"line_item_id": item.ID,
		"medicine_id":  item.MedicineID,
		"quantity":     item.Quantity,
		"dispensed":    r.Prescription.Dispensed(),
	})
	return r, nil
}

func checkItemTransition(item *medrecord.PrescribedMedication, to medrecord.PrescriptionStatus) error {
	if item.Status != medrecord.PrescriptionPending || to != medrecord.PrescriptionDispensed {
		return fmt.Errorf("%w: %s %s to %s", ErrInvalidStatusTransition, item.MedicineID, item.Status, to)
	}
	return nil
}

func (l *Linker) lockErr(op string, err error) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrOutcomeBusy
	}
	return l.reject(op, err)
}

func (l *Linker) reject(op string, err error) error {
	switch {
	case errors.Is(err, ErrSlotNotConfirmed),
		errors.Is(err, ErrRecordMismatch),
		errors.Is(err, ErrOutcomeExists),
		errors.Is(err, ErrOutcomeAlreadyComplete),
		errors.Is(err, ErrInvalidStatusTransition):
		metrics.RejectedTransitions.WithLabelValues(op).Inc()
		l.log.Debug("transition rejected", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (l *Linker) logEvent(ctx context.Context, outcomeID, actorID, eventType string, payload map[string]any) {
	metrics.Transitions.WithLabelValues(eventType).Inc()

	ev, err := audit.NewEvent(eventType, outcomeID, actorID, payload)
	if err != nil {
		l.log.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
	}
	if err := l.recorder.InsertEvent(ctx, ev); err != nil {
		l.log.Warn("failed to record event",
			zap.String("event", eventType),
			zap.String("outcome_id", outcomeID),
			zap.Error(err),
		)
	}
}
