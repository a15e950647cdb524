package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hackgods/hospital-management-system/internal/store"
)

const tableName = "medicines.csv"

type CSVRepository struct {
	table *store.Table[Medicine]
}

func NewCSVRepository(db *store.DB) (*CSVRepository, error) {
	t, err := store.OpenTable[Medicine](db, tableName, medicineCodec{})
	if err != nil {
		return nil, fmt.Errorf("open medicines: %w", err)
	}
	return &CSVRepository{table: t}, nil
}

func (r *CSVRepository) Get(_ context.Context, id string) (*Medicine, error) {
	if err := r.table.Refresh(); err != nil {
		return nil, err
	}
	m, ok := r.table.Get(id)
	if !ok {
		return nil, ErrMedicineNotFound
	}
	return &m, nil
}

func (r *CSVRepository) List(_ context.Context) ([]Medicine, error) {
	if err := r.table.Refresh(); err != nil {
		return nil, err
	}
	return r.table.All(), nil
}

func (r *CSVRepository) Create(_ context.Context, m *Medicine, ids store.IDGenerator) error {
	row, err := r.table.Insert(ids, func(id string) Medicine {
		created := *m
		created.ID = id
		return created
	})
	if err != nil {
		return fmt.Errorf("save medicines: %w", err)
	}
	m.ID = row.ID
	return nil
}

func (r *CSVRepository) Update(_ context.Context, id string, fn func(m *Medicine) error) (*Medicine, error) {
	var fnErr error
	m, err := r.table.Modify(id, func(m *Medicine) error {
		fnErr = fn(m)
		return fnErr
	})
	switch {
	case errors.Is(err, store.ErrRowNotFound):
		return nil, ErrMedicineNotFound
	case err != nil && fnErr != nil:
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("save medicines: %w", err)
	}
	return &m, nil
}

func (r *CSVRepository) Delete(_ context.Context, id string) error {
	err := r.table.Update(func() error {
		if !r.table.Remove(id) {
			return ErrMedicineNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrMedicineNotFound) {
		return fmt.Errorf("save medicines: %w", err)
	}
	return err
}

func (r *CSVRepository) IDs() []string {
	return r.table.Keys()
}

type medicineCodec struct{}

func (medicineCodec) Header() []string {
	return []string{
		"medicine_id", "name", "manufacturer", "expiry_date", "inventory_stock", "low_stock_level",
		"replenishment_stock", "replenish_status", "replenish_request_date", "approved_date",
	}
}

func (medicineCodec) Key(m Medicine) string { return m.ID }

func (medicineCodec) Encode(m Medicine) []string {
	return []string{
		m.ID,
		m.Name,
		m.Manufacturer,
		store.FormatDate(m.ExpiryDate),
		strconv.Itoa(m.InventoryStock),
		strconv.Itoa(m.LowStockLevel),
		strconv.Itoa(m.ReplenishmentStock),
		string(m.ReplenishStatus),
		store.FormatDate(m.ReplenishRequestDate),
		store.FormatDate(m.ApprovedDate),
	}
}

func (medicineCodec) Decode(row []string) (Medicine, error) {
	m := Medicine{
		ID:              row[0],
		Name:            row[1],
		Manufacturer:    row[2],
		ReplenishStatus: ReplenishStatus(row[7]),
	}
	var err error
	if m.ExpiryDate, err = store.ParseDate("expiry_date", row[3]); err != nil {
		return Medicine{}, err
	}
	if m.InventoryStock, err = store.ParseInt("inventory_stock", row[4]); err != nil {
		return Medicine{}, err
	}
	if m.LowStockLevel, err = store.ParseInt("low_stock_level", row[5]); err != nil {
		return Medicine{}, err
	}
	if m.ReplenishmentStock, err = store.ParseInt("replenishment_stock", row[6]); err != nil {
		return Medicine{}, err
	}
	if m.ReplenishRequestDate, err = store.ParseDate("replenish_request_date", row[8]); err != nil {
		return Medicine{}, err
	}
	if m.ApprovedDate, err = store.ParseDate("approved_date", row[9]); err != nil {
		return Medicine{}, err
	}
	if m.ReplenishStatus == "" {
		m.ReplenishStatus = ReplenishNone
	}
	return m, nil
}
