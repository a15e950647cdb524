package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/audit"
	"github.com/hackgods/hospital-management-system/internal/metrics"
	redisclient "github.com/hackgods/hospital-management-system/internal/redis"
	"github.com/hackgods/hospital-management-system/internal/store"
)

const (
	EventSlotOpened             = "SLOT_OPENED"
	EventAppointmentRequested   = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentDeclined    = "APPOINTMENT_DECLINED"
	EventDeclineAcknowledged    = "DECLINE_ACKNOWLEDGED"
	EventAppointmentCanceled    = "APPOINTMENT_CANCELED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventOutcomeAttached        = "OUTCOME_ATTACHED"
)

var (
	ErrSlotUnavailable         = errors.New("slot is not available")
	ErrSlotBeingBooked         = errors.New("slot is currently being changed, please retry")
	ErrNotSlotDoctor           = errors.New("slot belongs to another doctor")
	ErrNotSlotPatient          = errors.New("slot belongs to another patient")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrAcknowledgementDeclined = errors.New("acknowledgement declined")
	ErrDuplicateSlot           = errors.New("doctor already has a slot at that time")
	ErrInvalidSlot             = errors.New("invalid slot")
	ErrOutcomeAlreadyAttached  = errors.New("slot already has an outcome record")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	recorder audit.Recorder
	ids      store.IDGenerator
	log      *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, recorder audit.Recorder, ids store.IDGenerator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.Discard{}
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		recorder: recorder,
		ids:      ids,
		log:      log,
	}
}

// OpenSlot creates an AVAILABLE slot for a doctor.
func (s *Service) OpenSlot(ctx context.Context, doctorID string, at time.Time, location string) (*Appointment, error) {
	if strings.TrimSpace(doctorID) == "" || at.IsZero() {
		return nil, fmt.Errorf("%w: doctor and time are required", ErrInvalidSlot)
	}

	var created *Appointment
	err := s.locker.WithSlotLock(ctx, "doctor:"+doctorID, func(lockCtx context.Context) error {
		taken, err := s.doctorTimes(lockCtx, doctorID)
		if err != nil {
			return err
		}
		if taken[at.Unix()] {
			return fmt.Errorf("%w: %s at %s", ErrDuplicateSlot, doctorID, at.Format(time.RFC3339))
		}
		created, err = s.newSlot(lockCtx, doctorID, at, location)
		return err
	})
	if err != nil {
		return nil, s.lockErr("open_slot", err)
	}
	return created, nil
}

// GenerateAvailability opens a slot every step in [from, to), skipping
// times the doctor already has a slot at.
func (s *Service) GenerateAvailability(ctx context.Context, doctorID string, from, to time.Time, step time.Duration, location string) ([]Appointment, error) {
	if step <= 0 || !from.Before(to) {
		return nil, fmt.Errorf("%w: empty availability window", ErrInvalidSlot)
	}
	if strings.TrimSpace(doctorID) == "" {
		return nil, fmt.Errorf("%w: doctor is required", ErrInvalidSlot)
	}

	var created []Appointment
	err := s.locker.WithSlotLock(ctx, "doctor:"+doctorID, func(lockCtx context.Context) error {
		taken, err := s.doctorTimes(lockCtx, doctorID)
		if err != nil {
			return err
		}
		for at := from; at.Before(to); at = at.Add(step) {
			if taken[at.Unix()] {
				continue
			}
			a, err := s.newSlot(lockCtx, doctorID, at, location)
			if err != nil {
				return err
			}
			created = append(created, *a)
		}
		return nil
	})
	if err != nil {
		return created, s.lockErr("generate_availability", err)
	}
	return created, nil
}

// Book requests an AVAILABLE slot for a patient.
func (s *Service) Book(ctx context.Context, slotID, patientID string) (*Appointment, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patient is required", ErrInvalidSlot)
	}
	return s.transition(ctx, "book", slotID, patientID, EventAppointmentRequested, func(a *Appointment) error {
		if a.Status != StatusAvailable {
			return fmt.Errorf("%w: %s is %s", ErrSlotUnavailable, a.ID, a.Status)
		}
		a.PatientID = patientID
		a.Status = StatusPending
		return nil
	})
}

// Accept confirms a pending request. Only the owning doctor may accept.
func (s *Service) Accept(ctx context.Context, slotID, doctorID string) (*Appointment, error) {
	return s.transition(ctx, "accept", slotID, doctorID, EventAppointmentConfirmed, func(a *Appointment) error {
		if err := checkDoctor(a, doctorID); err != nil {
			return err
		}
		if err := checkStatus(a, StatusPending); err != nil {
			return err
		}
		a.Status = StatusConfirmed
		return nil
	})
}

// Decline refuses a pending request. The patient stays on the slot until
// they acknowledge the decline.
func (s *Service) Decline(ctx context.Context, slotID, doctorID string) (*Appointment, error) {
	return s.transition(ctx, "decline", slotID, doctorID, EventAppointmentDeclined, func(a *Appointment) error {
		if err := checkDoctor(a, doctorID); err != nil {
			return err
		}
		if err := checkStatus(a, StatusPending); err != nil {
			return err
		}
		a.Status = StatusCanceled
		return nil
	})
}

// Acknowledge lets the affected patient accept a decline, which returns the
// slot to AVAILABLE. Answering no leaves the slot untouched.
func (s *Service) Acknowledge(ctx context.Context, slotID, patientID string, yes bool) (*Appointment, error) {
	return s.transition(ctx, "acknowledge", slotID, patientID, EventDeclineAcknowledged, func(a *Appointment) error {
		if err := checkPatient(a, patientID); err != nil {
			return err
		}
		if err := checkStatus(a, StatusCanceled); err != nil {
			return err
		}
		if !yes {
			return ErrAcknowledgementDeclined
		}
		a.PatientID = ""
		a.Status = StatusAvailable
		return nil
	})
}

// Cancel withdraws a confirmed booking and recycles the slot straight away.
func (s *Service) Cancel(ctx context.Context, slotID, patientID string) (*Appointment, error) {
	return s.transition(ctx, "cancel", slotID, patientID, EventAppointmentCanceled, func(a *Appointment) error {
		if err := checkPatient(a, patientID); err != nil {
			return err
		}
		if err := checkStatus(a, StatusConfirmed); err != nil {
			return err
		}
		if a.OutcomeID != "" {
			return fmt.Errorf("%w: %s already has outcome %s", ErrInvalidStatusTransition, a.ID, a.OutcomeID)
		}
		a.PatientID = ""
		a.Status = StatusAvailable
		return nil
	})
}

// Complete closes a confirmed appointment. Recording an outcome does not
// call this; the doctor does it explicitly.
func (s *Service) Complete(ctx context.Context, slotID, doctorID string) (*Appointment, error) {
	return s.transition(ctx, "complete", slotID, doctorID, EventAppointmentCompleted, func(a *Appointment) error {
		if err := checkDoctor(a, doctorID); err != nil {
			return err
		}
		if err := checkStatus(a, StatusConfirmed); err != nil {
			return err
		}
		a.Status = StatusCompleted
		return nil
	})
}

// AttachOutcome sets the slot's outcome back-reference. Status is left as is.
func (s *Service) AttachOutcome(ctx context.Context, slotID, outcomeID string) (*Appointment, error) {
	return s.transition(ctx, "attach_outcome", slotID, "", EventOutcomeAttached, func(a *Appointment) error {
		if a.OutcomeID != "" && a.OutcomeID != outcomeID {
			return fmt.Errorf("%w: %s", ErrOutcomeAlreadyAttached, a.OutcomeID)
		}
		a.OutcomeID = outcomeID
		return nil
	})
}

// Reschedule moves a confirmed booking to another AVAILABLE slot. The new
// slot is booked before the old one is released, so a failed booking leaves
// everything as it was. The new slot still needs the doctor's acceptance.
func (s *Service) Reschedule(ctx context.Context, patientID, fromSlotID, toSlotID string) (*Appointment, error) {
	from, err := s.repo.Get(ctx, fromSlotID)
	if err != nil {
		return nil, err
	}
	if err := checkPatient(from, patientID); err != nil {
		return nil, s.reject("reschedule", err)
	}
	if err := checkStatus(from, StatusConfirmed); err != nil {
		return nil, s.reject("reschedule", err)
	}

	booked, err := s.Book(ctx, toSlotID, patientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Cancel(ctx, fromSlotID, patientID); err != nil {
		s.releaseBooking(ctx, booked)
		return nil, fmt.Errorf("release %s: %w", fromSlotID, err)
	}

	s.logEvent(ctx, booked.ID, patientID, EventAppointmentRescheduled, map[string]any{
		"from_slot_id": fromSlotID,
	})
	return booked, nil
}

func (s *Service) Get(ctx context.Context, slotID string) (*Appointment, error) {
	return s.repo.Get(ctx, slotID)
}

// transition runs fn against the stored slot under its lock and persists the
// result. The repository applies fn to a freshly read copy and saves nothing
// when fn fails.
func (s *Service) transition(ctx context.Context, op, slotID, actorID, event string, fn func(a *Appointment) error) (*Appointment, error) {
	var updated *Appointment
	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		a, err := s.repo.Update(lockCtx, slotID, fn)
		if err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, s.lockErr(op, err)
	}

	payload := map[string]any{
		"doctor_id":  updated.DoctorID,
		"patient_id": updated.PatientID,
		"status":     string(updated.Status),
	}
	if updated.OutcomeID != "" {
		payload["outcome_id"] = updated.OutcomeID
	}
	s.logEvent(ctx, updated.ID, actorID, event, payload)
	return updated, nil
}

func (s *Service) newSlot(ctx context.Context, doctorID string, at time.Time, location string) (*Appointment, error) {
	a := &Appointment{
		DoctorID: doctorID,
		Time:     at,
		Location: strings.TrimSpace(location),
		Status:   StatusAvailable,
	}
	if err := s.repo.Create(ctx, a, s.ids); err != nil {
		return nil, fmt.Errorf("open slot: %w", err)
	}
	s.logEvent(ctx, a.ID, doctorID, EventSlotOpened, map[string]any{
		"time":     at,
		"location": a.Location,
	})
	return a, nil
}

func (s *Service) doctorTimes(ctx context.Context, doctorID string) (map[int64]bool, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	taken := make(map[int64]bool)
	for _, a := range all {
		if a.DoctorID == doctorID {
			taken[a.Time.Unix()] = true
		}
	}
	return taken, nil
}

// releaseBooking undoes a Book made by Reschedule when the old slot could
// not be released.
func (s *Service) releaseBooking(ctx context.Context, a *Appointment) {
	_, err := s.repo.Update(ctx, a.ID, func(cur *Appointment) error {
		if cur.Status != StatusPending || cur.PatientID != a.PatientID {
			return fmt.Errorf("%w: %s is %s", ErrInvalidStatusTransition, cur.ID, cur.Status)
		}
		cur.PatientID = ""
		cur.Status = StatusAvailable
		return nil
	})
	if err != nil {
		s.log.Error("failed to release rescheduled slot",
			zap.String("slot_id", a.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) lockErr(op string, err error) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return s.reject(op, err)
}

// reject counts refused transitions. Declined acknowledgements and storage
// failures are not refusals.
func (s *Service) reject(op string, err error) error {
	switch {
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrNotSlotDoctor),
		errors.Is(err, ErrNotSlotPatient),
		errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrDuplicateSlot),
		errors.Is(err, ErrOutcomeAlreadyAttached):
		metrics.RejectedTransitions.WithLabelValues(op).Inc()
		s.log.Debug("transition rejected", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (s *Service) logEvent(ctx context.Context, slotID, actorID, eventType string, payload map[string]any) {
	metrics.Transitions.WithLabelValues(eventType).Inc()

	ev, err := audit.NewEvent(eventType, slotID, actorID, payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
	}
	if err := s.recorder.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to record event",
			zap.String("event", eventType),
			zap.String("slot_id", slotID),
			zap.Error(err),
		)
	}
}

func checkDoctor(a *Appointment, doctorID string) error {
	if a.DoctorID != doctorID {
		return fmt.Errorf("%w: %s", ErrNotSlotDoctor, a.ID)
	}
	return nil
}

func checkPatient(a *Appointment, patientID string) error {
	if a.PatientID == "" || a.PatientID != patientID {
		return fmt.Errorf("%w: %s", ErrNotSlotPatient, a.ID)
	}
	return nil
}

func checkStatus(a *Appointment, want Status) error {
	if a.Status != want {
		return fmt.Errorf("%w: %s is %s, want %s", ErrInvalidStatusTransition, a.ID, a.Status, want)
	}
	return nil
}
