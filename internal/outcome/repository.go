package outcome

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrOutcomeNotFound      = errors.New("outcome record not found")
	ErrNoOutcomesForPatient = errors.New("patient has no outcome records")
	ErrNoPrescription       = errors.New("outcome record has no prescription")
	ErrMedicationNotFound   = errors.New("medication not found in prescription")
)

// Repository stores outcome records. Reads attach the prescription of the
// record's diagnosis.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	ForPatient(ctx context.Context, patientID string) ([]Record, error)
	ForDoctor(ctx context.Context, doctorID string) ([]Record, error)
	// Create assigns r.ID from ids and stores r in one step.
	Create(ctx context.Context, r *Record, ids store.IDGenerator) error
	// Update applies fn to the stored record and saves it in one step.
	// Nothing is saved when fn fails.
	Update(ctx context.Context, id string, fn func(r *Record) error) (*Record, error)
	Delete(ctx context.Context, id string) error
	// SaveLineItem persists a changed line item of an outcome's prescription,
	// refusing the change if the stored item has moved on.
	SaveLineItem(ctx context.Context, outcomeID string, item medrecord.PrescribedMedication) error
	IDs() []string
}
