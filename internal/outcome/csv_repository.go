package outcome

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/store"
)

const tableName = "appointment_outcome_records.csv"

type CSVRepository struct {
	table         *store.Table[Record]
	prescriptions *medrecord.PrescriptionStore
}

// NewCSVRepository opens the outcome table on db. The prescription tables
// are shared with any medrecord repository on the same db.
func NewCSVRepository(db *store.DB) (*CSVRepository, error) {
	t, err := store.OpenTable[Record](db, tableName, recordCodec{})
	if err != nil {
		return nil, fmt.Errorf("open outcome records: %w", err)
	}
	p, err := medrecord.OpenPrescriptionStore(db)
	if err != nil {
		return nil, err
	}
	return &CSVRepository{table: t, prescriptions: p}, nil
}

func (r *CSVRepository) Get(_ context.Context, id string) (*Record, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	rec, ok := r.table.Get(id)
	if !ok {
		return nil, ErrOutcomeNotFound
	}
	r.hydrate(&rec)
	return &rec, nil
}

func (r *CSVRepository) List(_ context.Context) ([]Record, error) {
	return r.collect(func(Record) bool { return true })
}

func (r *CSVRepository) ForPatient(_ context.Context, patientID string) ([]Record, error) {
	return r.collect(func(rec Record) bool { return rec.PatientID == patientID })
}

func (r *CSVRepository) ForDoctor(_ context.Context, doctorID string) ([]Record, error) {
	return r.collect(func(rec Record) bool { return rec.DoctorID == doctorID })
}

func (r *CSVRepository) Create(_ context.Context, rec *Record, ids store.IDGenerator) error {
	row, err := r.table.Insert(ids, func(id string) Record {
		created := *rec
		created.ID = id
		created.Prescription = nil
		return created
	})
	if err != nil {
		return fmt.Errorf("save outcome records: %w", err)
	}
	rec.ID = row.ID
	return nil
}

func (r *CSVRepository) Update(_ context.Context, id string, fn func(rec *Record) error) (*Record, error) {
	var fnErr error
	rec, err := r.table.Modify(id, func(rec *Record) error {
		fnErr = fn(rec)
		rec.Prescription = nil
		return fnErr
	})
	switch {
	case errors.Is(err, store.ErrRowNotFound):
		return nil, ErrOutcomeNotFound
	case err != nil && fnErr != nil:
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("save outcome records: %w", err)
	}
	r.hydrate(&rec)
	return &rec, nil
}

func (r *CSVRepository) Delete(_ context.Context, id string) error {
	err := r.table.Update(func() error {
		if !r.table.Remove(id) {
			return ErrOutcomeNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrOutcomeNotFound) {
		return fmt.Errorf("save outcome records: %w", err)
	}
	return err
}

// SaveLineItem writes a new status for one line item of outcomeID's
// prescription. The stored item must still allow the change.
func (r *CSVRepository) SaveLineItem(_ context.Context, outcomeID string, item medrecord.PrescribedMedication) error {
	var checkErr error
	err := store.Update(func() error {
		current, ok := r.prescriptions.LineItem(item.ID)
		if !ok {
			checkErr = fmt.Errorf("%w: %s in %s", ErrMedicationNotFound, item.MedicineID, outcomeID)
			return checkErr
		}
		if checkErr = checkItemTransition(&current, item.Status); checkErr != nil {
			return checkErr
		}
		r.prescriptions.PutLineItem(item)
		return nil
	}, r.prescriptions.LineItems())
	if err != nil && checkErr == nil {
		return fmt.Errorf("save medication status: %w", err)
	}
	return err
}

func (r *CSVRepository) IDs() []string {
	return r.table.Keys()
}

func (r *CSVRepository) refresh() error {
	if err := r.table.Refresh(); err != nil {
		return err
	}
	return r.prescriptions.Refresh()
}

func (r *CSVRepository) hydrate(rec *Record) {
	rec.Prescription, _ = r.prescriptions.Get(rec.DiagnosisID)
}

// collect returns matching records in appointment time order, then by id.
func (r *CSVRepository) collect(keep func(Record) bool) ([]Record, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	out := r.table.Filter(keep)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AppointmentTime.Equal(out[j].AppointmentTime) {
			return out[i].AppointmentTime.Before(out[j].AppointmentTime)
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		r.hydrate(&out[i])
	}
	return out, nil
}

type recordCodec struct{}

func (recordCodec) Header() []string {
	return []string{
		"appointment_outcome_record_id", "appointment_id", "patient_id", "doctor_id", "diagnosis_id",
		"appointment_time", "type_of_service", "consultation_notes", "status",
	}
}

func (recordCodec) Key(r Record) string { return r.ID }

func (recordCodec) Encode(r Record) []string {
	return []string{
		r.ID,
		r.AppointmentID,
		r.PatientID,
		r.DoctorID,
		r.DiagnosisID,
		store.FormatTime(r.AppointmentTime),
		r.TypeOfService,
		r.ConsultationNotes,
		string(r.Status),
	}
}

func (recordCodec) Decode(row []string) (Record, error) {
	r := Record{
		ID:                row[0],
		AppointmentID:     row[1],
		PatientID:         row[2],
		DoctorID:          row[3],
		DiagnosisID:       row[4],
		TypeOfService:     row[6],
		ConsultationNotes: row[7],
		Status:            Status(row[8]),
	}
	var err error
	if r.AppointmentTime, err = store.ParseTime("appointment_time", row[5]); err != nil {
		return Record{}, err
	}
	if r.Status != StatusIncomplete && r.Status != StatusComplete {
		return Record{}, fmt.Errorf("%w: status=%q", store.ErrMalformedRow, row[8])
	}
	return r, nil
}
