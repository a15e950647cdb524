package medrecord

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hackgods/hospital-management-system/internal/store"
)

const (
	prescriptionsTable = "prescriptions.csv"
	lineItemsTable     = "prescribed_medications.csv"
)

type prescriptionRow struct {
	DiagnosisID string
	Date        time.Time
}

// PrescriptionStore owns the prescription and line item tables. Any
// repository opened on the same store.DB shares the same rows, which is how
// the outcome records see line item status changes.
type PrescriptionStore struct {
	prescriptions *store.Table[prescriptionRow]
	lineItems     *store.Table[PrescribedMedication]
}

func OpenPrescriptionStore(db *store.DB) (*PrescriptionStore, error) {
	p, err := store.OpenTable[prescriptionRow](db, prescriptionsTable, prescriptionCodec{})
	if err != nil {
		return nil, fmt.Errorf("open prescriptions: %w", err)
	}
	li, err := store.OpenTable[PrescribedMedication](db, lineItemsTable, lineItemCodec{})
	if err != nil {
		return nil, fmt.Errorf("open prescribed medications: %w", err)
	}
	return &PrescriptionStore{prescriptions: p, lineItems: li}, nil
}

// Get assembles the prescription for a diagnosis with its line items in id
// order.
func (s *PrescriptionStore) Get(diagnosisID string) (*Prescription, bool) {
	row, ok := s.prescriptions.Get(diagnosisID)
	if !ok {
		return nil, false
	}
	items := s.lineItems.Filter(func(m PrescribedMedication) bool {
		return m.DiagnosisID == diagnosisID
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &Prescription{DiagnosisID: row.DiagnosisID, Date: row.Date, Medications: items}, true
}

// Refresh picks up prescriptions written by another process.
func (s *PrescriptionStore) Refresh() error {
	if err := s.prescriptions.Refresh(); err != nil {
		return err
	}
	return s.lineItems.Refresh()
}

func (s *PrescriptionStore) putPrescription(p *Prescription) {
	s.prescriptions.Put(prescriptionRow{DiagnosisID: p.DiagnosisID, Date: p.Date})
}

func (s *PrescriptionStore) freeLineItemID(ids store.IDGenerator) (string, error) {
	return store.FreeID(ids, s.lineItems.Has)
}

// PutLineItem stages a single line item in memory; callers run it inside
// store.Update.
func (s *PrescriptionStore) PutLineItem(m PrescribedMedication) {
	s.lineItems.Put(m)
}

func (s *PrescriptionStore) LineItem(id string) (PrescribedMedication, bool) {
	return s.lineItems.Get(id)
}

// Tables returns the tables to hand to store.Update.
func (s *PrescriptionStore) Tables() []store.Committer {
	return []store.Committer{s.prescriptions, s.lineItems}
}

// LineItems is the line item table on its own, for callers that only touch
// item status.
func (s *PrescriptionStore) LineItems() store.Committer {
	return s.lineItems
}

func (s *PrescriptionStore) LineItemIDs() []string {
	return s.lineItems.Keys()
}

type prescriptionCodec struct{}

func (prescriptionCodec) Header() []string { return []string{"diagnosis_id", "prescription_date"} }

func (prescriptionCodec) Key(p prescriptionRow) string { return p.DiagnosisID }

func (prescriptionCodec) Encode(p prescriptionRow) []string {
	return []string{p.DiagnosisID, store.FormatDate(p.Date)}
}

func (prescriptionCodec) Decode(row []string) (prescriptionRow, error) {
	d, err := store.ParseDate("prescription_date", row[1])
	if err != nil {
		return prescriptionRow{}, err
	}
	return prescriptionRow{DiagnosisID: row[0], Date: d}, nil
}

type lineItemCodec struct{}

func (lineItemCodec) Header() []string {
	return []string{"prescribed_id", "diagnosis_id", "medicine_id", "quantity", "period_days", "dosage", "status"}
}

func (lineItemCodec) Key(m PrescribedMedication) string { return m.ID }

func (lineItemCodec) Encode(m PrescribedMedication) []string {
	return []string{
		m.ID,
		m.DiagnosisID,
		m.MedicineID,
		strconv.Itoa(m.Quantity),
		strconv.Itoa(m.PeriodDays),
		m.Dosage,
		string(m.Status),
	}
}

func (lineItemCodec) Decode(row []string) (PrescribedMedication, error) {
	m := PrescribedMedication{
		ID:          row[0],
		DiagnosisID: row[1],
		MedicineID:  row[2],
		Dosage:      row[5],
		Status:      PrescriptionStatus(row[6]),
	}
	var err error
	if m.Quantity, err = store.ParseInt("quantity", row[3]); err != nil {
		return PrescribedMedication{}, err
	}
	if m.PeriodDays, err = store.ParseInt("period_days", row[4]); err != nil {
		return PrescribedMedication{}, err
	}
	switch m.Status {
	case PrescriptionPending, PrescriptionDispensed:
	default:
		return PrescribedMedication{}, fmt.Errorf("%w: status=%q", store.ErrMalformedRow, row[6])
	}
	return m, nil
}
