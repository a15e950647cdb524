package appointment

import "time"

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusConfirmed, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// Appointment is a doctor-owned slot. PatientID is empty while the slot is
// open and again once a decline has been acknowledged or a confirmed
// booking canceled.
type Appointment struct {
	ID        string
	DoctorID  string
	PatientID string
	Time      time.Time
	Location  string
	Status    Status
	OutcomeID string
}

// Consistent reports whether the patient field agrees with the status.
// A CANCELED slot keeps its patient until the decline is acknowledged.
func (a Appointment) Consistent() bool {
	switch a.Status {
	case StatusAvailable:
		return a.PatientID == ""
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled:
		return a.PatientID != ""
	}
	return false
}
