package personnel

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context, role Role) ([]Account, error)
	// Create assigns a.ID from ids and stores a in its role's table in one
	// step.
	Create(ctx context.Context, a *Account, ids store.IDGenerator) error
	// Update applies fn to the stored account and saves it in one step.
	// Nothing is saved when fn fails.
	Update(ctx context.Context, id string, fn func(a *Account) error) (*Account, error)
	Delete(ctx context.Context, id string) error
	IDs(role Role) []string
}
