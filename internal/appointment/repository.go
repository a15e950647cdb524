package appointment

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains the storage operations needed by the service. Reads
// always reflect the latest write, whichever process made it.
type Repository interface {
	Get(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context) ([]Appointment, error)
	// Create assigns a.ID from ids and stores a in one step.
	Create(ctx context.Context, a *Appointment, ids store.IDGenerator) error
	// Update applies fn to the stored slot and saves it in one step. Nothing
	// is saved when fn fails.
	Update(ctx context.Context, id string, fn func(a *Appointment) error) (*Appointment, error)
	IDs() []string
}
