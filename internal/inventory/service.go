package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var (
	ErrInvalidMedicine      = errors.New("invalid medicine")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrReplenishmentPending = errors.New("replenishment already requested")
	ErrNoReplenishment      = errors.New("no replenishment request to approve")
	ErrNothingToReplenish   = errors.New("replenishment quantity is zero")
)

type NewMedicine struct {
	Name               string
	Manufacturer       string
	ExpiryDate         time.Time
	InventoryStock     int
	LowStockLevel      int
	ReplenishmentStock int
}

type Service struct {
	repo Repository
	ids  store.IDGenerator
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, ids store.IDGenerator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, ids: ids, log: log, now: time.Now}
}

func (s *Service) Add(ctx context.Context, in NewMedicine) (*Medicine, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMedicine)
	}
	if in.InventoryStock < 0 || in.LowStockLevel < 0 || in.ReplenishmentStock < 0 {
		return nil, fmt.Errorf("%w: stock levels must not be negative", ErrInvalidMedicine)
	}

	m := &Medicine{
		Name:               in.Name,
		Manufacturer:       strings.TrimSpace(in.Manufacturer),
		ExpiryDate:         in.ExpiryDate,
		InventoryStock:     in.InventoryStock,
		LowStockLevel:      in.LowStockLevel,
		ReplenishmentStock: in.ReplenishmentStock,
		ReplenishStatus:    ReplenishNone,
	}
	if err := s.repo.Create(ctx, m, s.ids); err != nil {
		return nil, fmt.Errorf("add medicine: %w", err)
	}
	s.log.Info("medicine added", zap.String("medicine_id", m.ID), zap.String("name", m.Name))
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Medicine, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Medicine, error) {
	return s.repo.List(ctx)
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove medicine: %w", err)
	}
	s.log.Info("medicine removed", zap.String("medicine_id", id))
	return nil
}

func (s *Service) UpdateStock(ctx context.Context, id string, stock int) (*Medicine, error) {
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidMedicine)
	}
	return s.mutate(ctx, id, func(m *Medicine) error {
		m.InventoryStock = stock
		return nil
	})
}

func (s *Service) SetLowStockLevel(ctx context.Context, id string, level int) (*Medicine, error) {
	if level < 0 {
		return nil, fmt.Errorf("%w: low stock level must not be negative", ErrInvalidMedicine)
	}
	return s.mutate(ctx, id, func(m *Medicine) error {
		m.LowStockLevel = level
		return nil
	})
}

func (s *Service) SetReplenishmentStock(ctx context.Context, id string, qty int) (*Medicine, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: replenishment stock must not be negative", ErrInvalidMedicine)
	}
	return s.mutate(ctx, id, func(m *Medicine) error {
		m.ReplenishmentStock = qty
		return nil
	})
}

// LowStock lists medicines at or below their alert level.
func (s *Service) LowStock(ctx context.Context) ([]Medicine, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Medicine
	for _, m := range all {
		if m.IsLowStock() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) Expired(ctx context.Context, asOf time.Time) ([]Medicine, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Medicine
	for _, m := range all {
		if m.IsExpired(asOf) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) PendingReplenishments(ctx context.Context) ([]Medicine, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Medicine
	for _, m := range all {
		if m.ReplenishStatus == ReplenishRequested {
			out = append(out, m)
		}
	}
	return out, nil
}

// RequestReplenishment is raised by a pharmacist. An approved request can be
// followed by a new one.
func (s *Service) RequestReplenishment(ctx context.Context, id, pharmacistID string) (*Medicine, error) {
	m, err := s.mutate(ctx, id, func(m *Medicine) error {
		if m.ReplenishStatus == ReplenishRequested {
			return ErrReplenishmentPending
		}
		if m.ReplenishmentStock <= 0 {
			return ErrNothingToReplenish
		}
		m.ReplenishStatus = ReplenishRequested
		m.ReplenishRequestDate = s.now()
		m.ApprovedDate = time.Time{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("replenishment requested",
		zap.String("medicine_id", id),
		zap.String("pharmacist_id", pharmacistID),
		zap.Int("quantity", m.ReplenishmentStock),
	)
	return m, nil
}

// ApproveReplenishment is granted by an admin and books the replenishment
// quantity into stock.
func (s *Service) ApproveReplenishment(ctx context.Context, id, adminID string) (*Medicine, error) {
	m, err := s.mutate(ctx, id, func(m *Medicine) error {
		if m.ReplenishStatus != ReplenishRequested {
			return ErrNoReplenishment
		}
		m.ReplenishStatus = ReplenishApproved
		m.ApprovedDate = s.now()
		m.InventoryStock += m.ReplenishmentStock
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("replenishment approved",
		zap.String("medicine_id", id),
		zap.String("admin_id", adminID),
		zap.Int("stock", m.InventoryStock),
	)
	return m, nil
}

// Dispense takes qty units out of stock.
func (s *Service) Dispense(ctx context.Context, id string, qty int) (*Medicine, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	m, err := s.mutate(ctx, id, func(m *Medicine) error {
		if m.InventoryStock < qty {
			return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientStock, m.ID, m.InventoryStock, qty)
		}
		m.InventoryStock -= qty
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.IsLowStock() {
		s.log.Warn("medicine below low stock level",
			zap.String("medicine_id", m.ID),
			zap.Int("stock", m.InventoryStock),
			zap.Int("low_stock_level", m.LowStockLevel),
		)
	}
	return m, nil
}

// Exists reports whether id names a medicine in the inventory.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrMedicineNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mutate applies fn to the stored medicine and saves the result. A failing
// fn leaves the medicine as it was.
func (s *Service) mutate(ctx context.Context, id string, fn func(m *Medicine) error) (*Medicine, error) {
	return s.repo.Update(ctx, id, fn)
}
