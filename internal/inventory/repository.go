package inventory

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrMedicineNotFound = errors.New("medicine not found")
)

// Repository is the persistence surface the inventory service needs.
type Repository interface {
	Get(ctx context.Context, id string) (*Medicine, error)
	List(ctx context.Context) ([]Medicine, error)
	// Create assigns m.ID from ids and stores m in one step.
	Create(ctx context.Context, m *Medicine, ids store.IDGenerator) error
	// Update applies fn to the stored medicine and saves it in one step.
	// Nothing is saved when fn fails.
	Update(ctx context.Context, id string, fn func(m *Medicine) error) (*Medicine, error)
	Delete(ctx context.Context, id string) error
	IDs() []string
}
