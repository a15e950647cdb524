package medrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hackgods/hospital-management-system/internal/store"
)

type fakeMedicines map[string]bool

func (f fakeMedicines) Exists(_ context.Context, id string) (bool, error) {
	return f[id], nil
}

func newTestService(t *testing.T) (*Service, *CSVRepository, *store.DB) {
	t.Helper()
	return newServiceOn(t, t.TempDir())
}

func newServiceOn(t *testing.T, dir string) (*Service, *CSVRepository, *store.DB) {
	t.Helper()
	db, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	repo, err := NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	ids := IDs{
		Records:   store.NewSequenceIDs("MR-", 4, repo.RecordIDs),
		Diagnoses: store.NewSequenceIDs("DX-", 4, repo.DiagnosisIDs),
		LineItems: store.NewSequenceIDs("PR-", 4, repo.LineItemIDs),
	}
	svc := NewService(repo, fakeMedicines{"M001": true, "M007": true}, ids, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return svc, repo, db
}

func TestEnsureRecordIsOnePerPair(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.EnsureRecord(ctx, "P001", "D001")
	if err != nil {
		t.Fatalf("EnsureRecord() error = %v", err)
	}
	b, _ := svc.EnsureRecord(ctx, "P001", "D001")
	c, _ := svc.EnsureRecord(ctx, "P001", "D002")

	if a.ID != "MR-0001" || b.ID != a.ID {
		t.Errorf("same pair ids = %s, %s", a.ID, b.ID)
	}
	if c.ID == a.ID {
		t.Errorf("different doctor reused record %s", c.ID)
	}
}

func TestPrescribe(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d, err := svc.AddDiagnosis(ctx, "P001", "D001", "Seasonal flu")
	if err != nil {
		t.Fatalf("AddDiagnosis() error = %v", err)
	}

	tests := []struct {
		name   string
		doctor string
		items  []LineItem
		want   error
	}{
		{"other doctor", "D002", []LineItem{{MedicineID: "M001", Quantity: 1, PeriodDays: 1}}, ErrNotDiagnosingDoctor},
		{"empty", "D001", nil, ErrEmptyPrescription},
		{"unknown medicine", "D001", []LineItem{{MedicineID: "M999", Quantity: 1, PeriodDays: 1}}, ErrUnknownMedicine},
		{"zero quantity", "D001", []LineItem{{MedicineID: "M001", Quantity: 0, PeriodDays: 3}}, ErrInvalidLineItem},
		{"duplicate", "D001", []LineItem{
			{MedicineID: "M001", Quantity: 1, PeriodDays: 1},
			{MedicineID: "M001", Quantity: 2, PeriodDays: 1},
		}, ErrDuplicateMedication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Prescribe(ctx, d.ID, tt.doctor, tt.items); !errors.Is(err, tt.want) {
				t.Errorf("Prescribe() error = %v, want %v", err, tt.want)
			}
		})
	}

	p, err := svc.Prescribe(ctx, d.ID, "D001", []LineItem{
		{MedicineID: "M007", Quantity: 2, PeriodDays: 5, Dosage: "twice daily"},
		{MedicineID: "M001", Quantity: 1, PeriodDays: 3},
	})
	if err != nil {
		t.Fatalf("Prescribe() error = %v", err)
	}
	if len(p.Medications) != 2 || p.Dispensed() {
		t.Fatalf("prescription = %+v", p)
	}
	for _, m := range p.Medications {
		if m.Status != PrescriptionPending {
			t.Errorf("%s status = %s, want PENDING", m.ID, m.Status)
		}
	}

	if _, err := svc.Prescribe(ctx, d.ID, "D001", []LineItem{{MedicineID: "M001", Quantity: 1, PeriodDays: 1}}); !errors.Is(err, ErrPrescriptionExists) {
		t.Errorf("second Prescribe() error = %v, want ErrPrescriptionExists", err)
	}
}

func TestDispensedIsDerived(t *testing.T) {
	tests := []struct {
		name string
		p    *Prescription
		want bool
	}{
		{"nil", nil, false},
		{"no items", &Prescription{}, false},
		{"mixed", &Prescription{Medications: []PrescribedMedication{
			{Status: PrescriptionDispensed}, {Status: PrescriptionPending},
		}}, false},
		{"all dispensed", &Prescription{Medications: []PrescribedMedication{
			{Status: PrescriptionDispensed}, {Status: PrescriptionDispensed},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Dispensed(); got != tt.want {
				t.Errorf("Dispensed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordsSurviveReload(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	first, _ := svc.AddDiagnosis(ctx, "P001", "D001", "Migraine, chronic")
	svc.now = func() time.Time { return time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC) }
	second, _ := svc.AddDiagnosis(ctx, "P001", "D001", "Dehydration")
	if _, err := svc.SetTreatment(ctx, first.ID, "D001", "Rest and fluids", time.Time{}); err != nil {
		t.Fatalf("SetTreatment() error = %v", err)
	}
	if _, err := svc.Prescribe(ctx, second.ID, "D001", []LineItem{{MedicineID: "M007", Quantity: 3, PeriodDays: 2}}); err != nil {
		t.Fatalf("Prescribe() error = %v", err)
	}
	rec, _ := svc.RecordFor(ctx, "P001", "D001")
	if _, err := svc.UpdateAllergies(ctx, rec.ID, []string{"penicillin", " ", "latex"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetBloodType(ctx, rec.ID, "o+"); err != nil {
		t.Fatal(err)
	}

	db2, _ := store.Open(db.Dir())
	repo2, err := NewCSVRepository(db2)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	got, err := repo2.FindRecord(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}
	if got.BloodType != "O+" || len(got.Allergies) != 2 {
		t.Errorf("record = %+v", got)
	}
	if len(got.Diagnoses) != 2 || got.Diagnoses[0].ID != first.ID || got.Diagnoses[1].ID != second.ID {
		t.Fatalf("diagnoses = %+v", got.Diagnoses)
	}
	if tr := got.Diagnoses[0].Treatment; tr == nil || tr.Description != "Rest and fluids" {
		t.Errorf("treatment = %+v", tr)
	}
	p := got.Diagnoses[1].Prescription
	if p == nil || len(p.Medications) != 1 || p.Medications[0].Quantity != 3 {
		t.Errorf("prescription = %+v", p)
	}
	if got.Diagnoses[0].Prescription != nil {
		t.Errorf("first diagnosis has prescription %+v", got.Diagnoses[0].Prescription)
	}
}

func TestPatientsForDoctor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.AddDiagnosis(ctx, "P002", "D001", "Sprain")
	svc.AddDiagnosis(ctx, "P001", "D001", "Cough")
	svc.AddDiagnosis(ctx, "P001", "D001", "Fever")
	svc.AddDiagnosis(ctx, "P003", "D002", "Rash")

	got, err := svc.PatientsForDoctor(ctx, "D001")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "P001" || got[1] != "P002" {
		t.Errorf("PatientsForDoctor() = %v", got)
	}
}

func TestServicesSharingADirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, _, _ := newServiceOn(t, dir)
	second, _, _ := newServiceOn(t, dir)

	a, err := first.EnsureRecord(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.EnsureRecord(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("one pair got records %s and %s", a.ID, b.ID)
	}

	d1, err := first.AddDiagnosis(ctx, "P001", "D001", "Flu")
	if err != nil {
		t.Fatal(err)
	}
	d2, err := second.AddDiagnosis(ctx, "P001", "D001", "Sprain")
	if err != nil {
		t.Fatal(err)
	}
	if d1.ID != "DX-0001" || d2.ID != "DX-0002" {
		t.Errorf("diagnosis ids = %s, %s, want DX-0001, DX-0002", d1.ID, d2.ID)
	}

	if _, err := first.Prescribe(ctx, d1.ID, "D001", []LineItem{{MedicineID: "M001", Quantity: 1, PeriodDays: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := second.Prescribe(ctx, d1.ID, "D001", []LineItem{{MedicineID: "M007", Quantity: 1, PeriodDays: 1}}); !errors.Is(err, ErrPrescriptionExists) {
		t.Errorf("second Prescribe() error = %v, want ErrPrescriptionExists", err)
	}
	p, err := second.Prescribe(ctx, d2.ID, "D001", []LineItem{{MedicineID: "M007", Quantity: 2, PeriodDays: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Medications[0].ID != "PR-0002" {
		t.Errorf("line item id = %s, want PR-0002", p.Medications[0].ID)
	}

	rec, err := first.RecordFor(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Diagnoses) != 2 || rec.Diagnoses[1].Prescription == nil {
		t.Errorf("first sees diagnoses %+v", rec.Diagnoses)
	}
}
