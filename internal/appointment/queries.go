package appointment

import (
	"context"
	"fmt"
	"sort"
)

// Queries never mutate. Results are ordered by time, then by id.

func (s *Service) FindByDoctorAndPatient(ctx context.Context, doctorID, patientID string, status Status) ([]Appointment, error) {
	return s.filter(ctx, func(a Appointment) bool {
		return a.DoctorID == doctorID && a.PatientID == patientID && a.Status == status
	})
}

// EarliestConfirmed returns the first CONFIRMED slot the patient holds with
// the doctor.
func (s *Service) EarliestConfirmed(ctx context.Context, doctorID, patientID string) (*Appointment, error) {
	matches, err := s.FindByDoctorAndPatient(ctx, doctorID, patientID, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no confirmed appointment for %s with %s", ErrAppointmentNotFound, patientID, doctorID)
	}
	return &matches[0], nil
}

func (s *Service) AvailableSlots(ctx context.Context) ([]Appointment, error) {
	return s.filter(ctx, func(a Appointment) bool { return a.Status == StatusAvailable })
}

func (s *Service) AvailableForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.filter(ctx, func(a Appointment) bool {
		return a.DoctorID == doctorID && a.Status == StatusAvailable
	})
}

func (s *Service) ConfirmedForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.forPatient(ctx, patientID, StatusConfirmed)
}

func (s *Service) CanceledForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.forPatient(ctx, patientID, StatusCanceled)
}

func (s *Service) AllForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.forPatient(ctx, patientID)
}

// ForDoctor is the doctor's schedule, optionally narrowed to statuses.
func (s *Service) ForDoctor(ctx context.Context, doctorID string, statuses ...Status) ([]Appointment, error) {
	return s.filter(ctx, func(a Appointment) bool {
		return a.DoctorID == doctorID && hasStatus(a.Status, statuses)
	})
}

func (s *Service) PendingForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.ForDoctor(ctx, doctorID, StatusPending)
}

func (s *Service) All(ctx context.Context) ([]Appointment, error) {
	return s.filter(ctx, func(Appointment) bool { return true })
}

func (s *Service) forPatient(ctx context.Context, patientID string, statuses ...Status) ([]Appointment, error) {
	return s.filter(ctx, func(a Appointment) bool {
		return patientID != "" && a.PatientID == patientID && hasStatus(a.Status, statuses)
	})
}

func (s *Service) filter(ctx context.Context, keep func(Appointment) bool) ([]Appointment, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	var out []Appointment
	for _, a := range all {
		if keep(a) {
			out = append(out, a)
		}
	}
	SortByTime(out)
	return out, nil
}

// SortByTime orders slots by time with the id as tie-break.
func SortByTime(slots []Appointment) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Time.Equal(slots[j].Time) {
			return slots[i].Time.Before(slots[j].Time)
		}
		return slots[i].ID < slots[j].ID
	})
}

func hasStatus(s Status, statuses []Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
