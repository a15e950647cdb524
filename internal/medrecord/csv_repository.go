package medrecord

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hackgods/hospital-management-system/internal/store"
)

const (
	recordsTable   = "medical_records.csv"
	diagnosesTable = "diagnoses.csv"
)

type recordRow struct {
	ID        string
	PatientID string
	DoctorID  string
	BloodType string
	Allergies []string
}

type CSVRepository struct {
	records       *store.Table[recordRow]
	diagnoses     *store.Table[Diagnosis]
	prescriptions *PrescriptionStore
}

func NewCSVRepository(db *store.DB) (*CSVRepository, error) {
	records, err := store.OpenTable[recordRow](db, recordsTable, recordCodec{})
	if err != nil {
		return nil, fmt.Errorf("open medical records: %w", err)
	}
	diagnoses, err := store.OpenTable[Diagnosis](db, diagnosesTable, diagnosisCodec{})
	if err != nil {
		return nil, fmt.Errorf("open diagnoses: %w", err)
	}
	prescriptions, err := OpenPrescriptionStore(db)
	if err != nil {
		return nil, err
	}
	return &CSVRepository{records: records, diagnoses: diagnoses, prescriptions: prescriptions}, nil
}

func (r *CSVRepository) GetRecord(_ context.Context, id string) (*MedicalRecord, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	row, ok := r.records.Get(id)
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := r.hydrate(row)
	return &rec, nil
}

func (r *CSVRepository) FindRecord(_ context.Context, patientID, doctorID string) (*MedicalRecord, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	row, ok := r.findRow(patientID, doctorID)
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := r.hydrate(row)
	return &rec, nil
}

func (r *CSVRepository) RecordsForPatient(_ context.Context, patientID string) ([]MedicalRecord, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	return r.hydrateAll(r.records.Filter(func(row recordRow) bool { return row.PatientID == patientID })), nil
}

func (r *CSVRepository) RecordsForDoctor(_ context.Context, doctorID string) ([]MedicalRecord, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}
	return r.hydrateAll(r.records.Filter(func(row recordRow) bool { return row.DoctorID == doctorID })), nil
}

func (r *CSVRepository) EnsureRecord(_ context.Context, patientID, doctorID string, ids store.IDGenerator) (*MedicalRecord, bool, error) {
	var (
		row     recordRow
		created bool
	)
	err := r.records.Update(func() error {
		var found bool
		if row, found = r.findRow(patientID, doctorID); found {
			return nil
		}
		id, err := store.FreeID(ids, r.records.Has)
		if err != nil {
			return err
		}
		row = recordRow{ID: id, PatientID: patientID, DoctorID: doctorID}
		r.records.Put(row)
		created = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("save medical records: %w", err)
	}
	if err := r.refreshChildren(); err != nil {
		return nil, false, err
	}
	rec := r.hydrate(row)
	return &rec, created, nil
}

func (r *CSVRepository) UpdateRecord(_ context.Context, id string, fn func(rec *MedicalRecord)) (*MedicalRecord, error) {
	row, err := r.records.Modify(id, func(row *recordRow) error {
		rec := MedicalRecord{
			ID:        row.ID,
			PatientID: row.PatientID,
			DoctorID:  row.DoctorID,
			BloodType: row.BloodType,
			Allergies: row.Allergies,
		}
		fn(&rec)
		row.BloodType = rec.BloodType
		row.Allergies = rec.Allergies
		return nil
	})
	if errors.Is(err, store.ErrRowNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("save medical records: %w", err)
	}
	if err := r.refreshChildren(); err != nil {
		return nil, err
	}
	rec := r.hydrate(row)
	return &rec, nil
}

func (r *CSVRepository) GetDiagnosis(_ context.Context, id string) (*Diagnosis, error) {
	if err := r.refreshChildren(); err != nil {
		return nil, err
	}
	d, ok := r.diagnoses.Get(id)
	if !ok {
		return nil, ErrDiagnosisNotFound
	}
	d.Prescription, _ = r.prescriptions.Get(d.ID)
	return &d, nil
}

func (r *CSVRepository) CreateDiagnosis(_ context.Context, d *Diagnosis, ids store.IDGenerator) error {
	row, err := r.diagnoses.Insert(ids, func(id string) Diagnosis {
		created := *d
		created.ID = id
		created.Prescription = nil
		return created
	})
	if err != nil {
		return fmt.Errorf("save diagnoses: %w", err)
	}
	d.ID = row.ID
	return nil
}

func (r *CSVRepository) SaveDiagnosis(_ context.Context, d *Diagnosis) error {
	row := *d
	row.Prescription = nil
	if err := r.diagnoses.Update(func() error {
		r.diagnoses.Put(row)
		return nil
	}); err != nil {
		return fmt.Errorf("save diagnoses: %w", err)
	}
	return nil
}

func (r *CSVRepository) GetPrescription(_ context.Context, diagnosisID string) (*Prescription, error) {
	if err := r.prescriptions.Refresh(); err != nil {
		return nil, err
	}
	p, ok := r.prescriptions.Get(diagnosisID)
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return p, nil
}

func (r *CSVRepository) CreatePrescription(_ context.Context, p *Prescription, ids store.IDGenerator) error {
	err := store.Update(func() error {
		if _, exists := r.prescriptions.Get(p.DiagnosisID); exists {
			return fmt.Errorf("%w: %s", ErrPrescriptionExists, p.DiagnosisID)
		}
		for i := range p.Medications {
			id, err := r.prescriptions.freeLineItemID(ids)
			if err != nil {
				return err
			}
			p.Medications[i].ID = id
			p.Medications[i].DiagnosisID = p.DiagnosisID
			r.prescriptions.PutLineItem(p.Medications[i])
		}
		r.prescriptions.putPrescription(p)
		return nil
	}, r.prescriptions.Tables()...)
	if errors.Is(err, ErrPrescriptionExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("save prescription: %w", err)
	}
	return nil
}

func (r *CSVRepository) RecordIDs() []string    { return r.records.Keys() }
func (r *CSVRepository) DiagnosisIDs() []string { return r.diagnoses.Keys() }
func (r *CSVRepository) LineItemIDs() []string  { return r.prescriptions.LineItemIDs() }

func (r *CSVRepository) findRow(patientID, doctorID string) (recordRow, bool) {
	rows := r.records.Filter(func(row recordRow) bool {
		return row.PatientID == patientID && row.DoctorID == doctorID
	})
	if len(rows) == 0 {
		return recordRow{}, false
	}
	return rows[0], true
}

func (r *CSVRepository) refresh() error {
	if err := r.records.Refresh(); err != nil {
		return err
	}
	return r.refreshChildren()
}

func (r *CSVRepository) refreshChildren() error {
	if err := r.diagnoses.Refresh(); err != nil {
		return err
	}
	return r.prescriptions.Refresh()
}

func (r *CSVRepository) hydrateAll(rows []recordRow) []MedicalRecord {
	out := make([]MedicalRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.hydrate(row))
	}
	return out
}

// hydrate attaches diagnoses ordered by date then id, each with its
// prescription when one exists.
func (r *CSVRepository) hydrate(row recordRow) MedicalRecord {
	rec := MedicalRecord{
		ID:        row.ID,
		PatientID: row.PatientID,
		DoctorID:  row.DoctorID,
		BloodType: row.BloodType,
		Allergies: append([]string(nil), row.Allergies...),
	}
	ds := r.diagnoses.Filter(func(d Diagnosis) bool { return d.MedicalRecordID == row.ID })
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].Date.Equal(ds[j].Date) {
			return ds[i].Date.Before(ds[j].Date)
		}
		return ds[i].ID < ds[j].ID
	})
	for i := range ds {
		ds[i].Prescription, _ = r.prescriptions.Get(ds[i].ID)
	}
	rec.Diagnoses = ds
	return rec
}

type recordCodec struct{}

func (recordCodec) Header() []string {
	return []string{"record_id", "patient_id", "doctor_id", "blood_type", "allergies"}
}

func (recordCodec) Key(r recordRow) string { return r.ID }

func (recordCodec) Encode(r recordRow) []string {
	return []string{r.ID, r.PatientID, r.DoctorID, r.BloodType, store.JoinList(r.Allergies)}
}

func (recordCodec) Decode(row []string) (recordRow, error) {
	return recordRow{
		ID:        row[0],
		PatientID: row[1],
		DoctorID:  row[2],
		BloodType: row[3],
		Allergies: store.SplitList(row[4]),
	}, nil
}

type diagnosisCodec struct{}

func (diagnosisCodec) Header() []string {
	return []string{
		"diagnosis_id", "patient_id", "doctor_id", "medical_record_id", "diagnosis_date",
		"diagnosis_description", "treatment_description", "treatment_start_date",
	}
}

func (diagnosisCodec) Key(d Diagnosis) string { return d.ID }

func (diagnosisCodec) Encode(d Diagnosis) []string {
	var treatment, start string
	if d.Treatment != nil {
		treatment = d.Treatment.Description
		start = store.FormatDate(d.Treatment.StartDate)
	}
	return []string{
		d.ID,
		d.PatientID,
		d.DoctorID,
		d.MedicalRecordID,
		store.FormatDate(d.Date),
		d.Description,
		treatment,
		start,
	}
}

func (diagnosisCodec) Decode(row []string) (Diagnosis, error) {
	d := Diagnosis{
		ID:              row[0],
		PatientID:       row[1],
		DoctorID:        row[2],
		MedicalRecordID: row[3],
		Description:     row[5],
	}
	var err error
	if d.Date, err = store.ParseDate("diagnosis_date", row[4]); err != nil {
		return Diagnosis{}, err
	}
	if row[6] != "" || row[7] != "" {
		start, err := store.ParseDate("treatment_start_date", row[7])
		if err != nil {
			return Diagnosis{}, err
		}
		d.Treatment = &Treatment{Description: row[6], StartDate: start}
	}
	return d, nil
}
