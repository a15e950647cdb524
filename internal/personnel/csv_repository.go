package personnel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hackgods/hospital-management-system/internal/store"
)

var tableNames = map[Role]string{
	RoleDoctor:     "doctors.csv",
	RolePatient:    "patients.csv",
	RolePharmacist: "pharmacists.csv",
	RoleAdmin:      "admins.csv",
}

// CSVRepository keeps one file per role.
type CSVRepository struct {
	tables map[Role]*store.Table[Account]
}

func NewCSVRepository(db *store.DB) (*CSVRepository, error) {
	r := &CSVRepository{tables: make(map[Role]*store.Table[Account], len(tableNames))}
	for role, name := range tableNames {
		t, err := store.OpenTable[Account](db, name, accountCodec{role: role})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		r.tables[role] = t
	}
	return r, nil
}

func (r *CSVRepository) Get(_ context.Context, id string) (*Account, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	for _, role := range Roles {
		if a, ok := r.tables[role].Get(id); ok {
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (r *CSVRepository) List(_ context.Context, role Role) ([]Account, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	if role == "" {
		var out []Account
		for _, ro := range Roles {
			out = append(out, r.tables[ro].All()...)
		}
		return out, nil
	}
	t, ok := r.tables[role]
	if !ok {
		return nil, fmt.Errorf("list accounts: unknown role %q", role)
	}
	return t.All(), nil
}

func (r *CSVRepository) Create(_ context.Context, a *Account, ids store.IDGenerator) error {
	t, ok := r.tables[a.Role]
	if !ok {
		return fmt.Errorf("save account: unknown role %q", a.Role)
	}
	row, err := t.Insert(ids, func(id string) Account {
		created := *a
		created.ID = id
		return created
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", tableNames[a.Role], err)
	}
	a.ID = row.ID
	return nil
}

func (r *CSVRepository) Update(_ context.Context, id string, fn func(a *Account) error) (*Account, error) {
	role, err := r.roleOf(id)
	if err != nil {
		return nil, err
	}
	var fnErr error
	a, err := r.tables[role].Modify(id, func(a *Account) error {
		fnErr = fn(a)
		return fnErr
	})
	switch {
	case errors.Is(err, store.ErrRowNotFound):
		return nil, ErrAccountNotFound
	case err != nil && fnErr != nil:
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("save %s: %w", tableNames[role], err)
	}
	return &a, nil
}

func (r *CSVRepository) Delete(_ context.Context, id string) error {
	role, err := r.roleOf(id)
	if err != nil {
		return err
	}
	t := r.tables[role]
	err = t.Update(func() error {
		if !t.Remove(id) {
			return ErrAccountNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("save %s: %w", tableNames[role], err)
	}
	return err
}

// roleOf finds the table holding id after picking up other writers.
func (r *CSVRepository) roleOf(id string) (Role, error) {
	if err := r.refresh(); err != nil {
		return "", err
	}
	for _, role := range Roles {
		if r.tables[role].Has(id) {
			return role, nil
		}
	}
	return "", ErrAccountNotFound
}

func (r *CSVRepository) refresh() error {
	for _, role := range Roles {
		if err := r.tables[role].Refresh(); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the keys of one role's table.
func (r *CSVRepository) IDs(role Role) []string {
	t, ok := r.tables[role]
	if !ok {
		return nil
	}
	return t.Keys()
}

type accountCodec struct {
	role Role
}

func (accountCodec) Header() []string {
	return []string{
		"id", "name", "gender", "age", "date_of_birth", "email", "phone", "blood_type",
		"password_hash", "must_change_password",
	}
}

func (accountCodec) Key(a Account) string { return a.ID }

func (accountCodec) Encode(a Account) []string {
	return []string{
		a.ID,
		a.Name,
		string(a.Gender),
		strconv.Itoa(a.Age),
		store.FormatDate(a.DateOfBirth),
		a.Email,
		a.Phone,
		a.BloodType,
		a.PasswordHash,
		strconv.FormatBool(a.MustChangePassword),
	}
}

func (c accountCodec) Decode(row []string) (Account, error) {
	a := Account{
		ID:           row[0],
		Name:         row[1],
		Role:         c.role,
		Gender:       Gender(row[2]),
		Email:        row[5],
		Phone:        row[6],
		BloodType:    row[7],
		PasswordHash: row[8],
	}
	var err error
	if a.Age, err = store.ParseInt("age", row[3]); err != nil {
		return Account{}, err
	}
	if a.DateOfBirth, err = store.ParseDate("date_of_birth", row[4]); err != nil {
		return Account{}, err
	}
	if a.MustChangePassword, err = store.ParseBool("must_change_password", row[9]); err != nil {
		return Account{}, err
	}
	return a, nil
}
