package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/hospital-management-system/internal/store"
)

const tableName = "appointments.csv"

type CSVRepository struct {
	table *store.Table[Appointment]
}

func NewCSVRepository(db *store.DB) (*CSVRepository, error) {
	t, err := store.OpenTable[Appointment](db, tableName, appointmentCodec{})
	if err != nil {
		return nil, fmt.Errorf("open appointments: %w", err)
	}
	return &CSVRepository{table: t}, nil
}

func (r *CSVRepository) Get(_ context.Context, id string) (*Appointment, error) {
	if err := r.table.Refresh(); err != nil {
		return nil, err
	}
	a, ok := r.table.Get(id)
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *CSVRepository) List(_ context.Context) ([]Appointment, error) {
	if err := r.table.Refresh(); err != nil {
		return nil, err
	}
	return r.table.All(), nil
}

func (r *CSVRepository) Create(_ context.Context, a *Appointment, ids store.IDGenerator) error {
	row, err := r.table.Insert(ids, func(id string) Appointment {
		created := *a
		created.ID = id
		return created
	})
	if err != nil {
		return fmt.Errorf("save appointments: %w", err)
	}
	a.ID = row.ID
	return nil
}

func (r *CSVRepository) Update(_ context.Context, id string, fn func(a *Appointment) error) (*Appointment, error) {
	var fnErr error
	a, err := r.table.Modify(id, func(a *Appointment) error {
		fnErr = fn(a)
		return fnErr
	})
	switch {
	case errors.Is(err, store.ErrRowNotFound):
		return nil, ErrAppointmentNotFound
	case err != nil && fnErr != nil:
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("save appointments: %w", err)
	}
	return &a, nil
}

func (r *CSVRepository) IDs() []string {
	return r.table.Keys()
}

type appointmentCodec struct{}

func (appointmentCodec) Header() []string {
	return []string{"appointment_id", "doctor_id", "patient_id", "appointment_time", "location", "status", "outcome_record_id"}
}

func (appointmentCodec) Key(a Appointment) string { return a.ID }

func (appointmentCodec) Encode(a Appointment) []string {
	return []string{
		a.ID,
		a.DoctorID,
		a.PatientID,
		store.FormatTime(a.Time),
		a.Location,
		string(a.Status),
		a.OutcomeID,
	}
}

func (appointmentCodec) Decode(row []string) (Appointment, error) {
	a := Appointment{
		ID:        row[0],
		DoctorID:  row[1],
		PatientID: row[2],
		Location:  row[4],
		Status:    Status(row[5]),
		OutcomeID: row[6],
	}
	var err error
	if a.Time, err = store.ParseTime("appointment_time", row[3]); err != nil {
		return Appointment{}, err
	}
	if !a.Status.Valid() {
		return Appointment{}, fmt.Errorf("%w: status=%q", store.ErrMalformedRow, row[5])
	}
	if !a.Consistent() {
		return Appointment{}, fmt.Errorf("%w: %s is %s with patient %q", store.ErrMalformedRow, a.ID, a.Status, a.PatientID)
	}
	return a, nil
}
