package outcome

import (
	"time"

	"github.com/hackgods/hospital-management-system/internal/medrecord"
)

type Status string

const (
	StatusIncomplete Status = "INCOMPLETE"
	StatusComplete   Status = "COMPLETE"
)

// Record summarises a consultation held in a confirmed appointment slot.
// Prescription is looked up by DiagnosisID on every read.
type Record struct {
	ID                string
	AppointmentID     string
	PatientID         string
	DoctorID          string
	DiagnosisID       string
	AppointmentTime   time.Time
	TypeOfService     string
	ConsultationNotes string
	Status            Status
	Prescription      *medrecord.Prescription
}
