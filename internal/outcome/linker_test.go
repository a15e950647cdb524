package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/audit"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	redisclient "github.com/hackgods/hospital-management-system/internal/redis"
	"github.com/hackgods/hospital-management-system/internal/store"
)

type fixture struct {
	db        *store.DB
	slots     *appointment.Service
	records   *medrecord.Service
	medicines *inventory.Service
	linker    *Linker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, t.TempDir(), redisclient.NewProcessLocker())
}

func newFixtureOn(t *testing.T, dir string, locker redisclient.Locker) *fixture {
	t.Helper()
	db, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	apptRepo, err := appointment.NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	slots := appointment.NewService(apptRepo, locker, audit.Discard{}, store.NewSequenceIDs("A-", 4, apptRepo.IDs), nil)

	invRepo, err := inventory.NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	medicines := inventory.NewService(invRepo, store.NewSequenceIDs("M", 3, invRepo.IDs), nil)

	mrRepo, err := medrecord.NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	records := medrecord.NewService(mrRepo, medicines, medrecord.IDs{
		Records:   store.NewSequenceIDs("MR-", 4, mrRepo.RecordIDs),
		Diagnoses: store.NewSequenceIDs("DX-", 4, mrRepo.DiagnosisIDs),
		LineItems: store.NewSequenceIDs("PR-", 4, mrRepo.LineItemIDs),
	}, nil)

	repo, err := NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	linker := NewLinker(repo, slots, medicines, locker, audit.Discard{}, store.NewSequenceIDs("AOR-", 4, repo.IDs), nil)

	return &fixture{db: db, slots: slots, records: records, medicines: medicines, linker: linker}
}

// confirmedSlot books and accepts a fresh slot for P001 with D001.
func (f *fixture) confirmedSlot(t *testing.T, at time.Time) *appointment.Appointment {
	t.Helper()
	ctx := context.Background()
	s, err := f.slots.OpenSlot(ctx, "D001", at, "Clinic 1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.slots.Book(ctx, s.ID, "P001"); err != nil {
		t.Fatal(err)
	}
	s, err = f.slots.Accept(ctx, s.ID, "D001")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// prescribed adds M001..M007 to the inventory and a diagnosis for P001 with a
// prescription of M007 x2 and M001 x1.
func (f *fixture) prescribed(t *testing.T) (*medrecord.MedicalRecord, *medrecord.Diagnosis) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := f.medicines.Add(ctx, inventory.NewMedicine{Name: "Med", InventoryStock: 10, LowStockLevel: 1}); err != nil {
			t.Fatal(err)
		}
	}
	d, err := f.records.AddDiagnosis(ctx, "P001", "D001", "Bronchitis")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.records.Prescribe(ctx, d.ID, "D001", []medrecord.LineItem{
		{MedicineID: "M007", Quantity: 2, PeriodDays: 5, Dosage: "1 tablet twice daily"},
		{MedicineID: "M001", Quantity: 1, PeriodDays: 3},
	}); err != nil {
		t.Fatal(err)
	}
	rec, err := f.records.RecordFor(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}
	return rec, d
}

func TestOpenAndRecordConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	rec, err := f.records.EnsureRecord(ctx, "P001", "D001")
	if err != nil {
		t.Fatal(err)
	}

	r1, err := f.linker.OpenOutcome(ctx, slot.ID, rec, "DX1", "", "")
	if err != nil {
		t.Fatalf("OpenOutcome() error = %v", err)
	}
	if r1.Status != StatusIncomplete || r1.Prescription != nil || r1.PatientID != "P001" {
		t.Errorf("opened = %+v", r1)
	}

	after, _ := f.slots.Get(ctx, slot.ID)
	if after.Status != appointment.StatusConfirmed || after.OutcomeID != r1.ID {
		t.Errorf("slot after open = %+v", after)
	}

	done, err := f.linker.RecordConsultation(ctx, r1.ID, "General", "stable")
	if err != nil {
		t.Fatalf("RecordConsultation() error = %v", err)
	}
	if done.Status != StatusComplete || done.TypeOfService != "General" || done.ConsultationNotes != "stable" {
		t.Errorf("recorded = %+v", done)
	}

	// completing the outcome leaves the appointment alone
	after, _ = f.slots.Get(ctx, slot.ID)
	if after.Status != appointment.StatusConfirmed {
		t.Errorf("slot status = %s, want CONFIRMED", after.Status)
	}

	if _, err := f.linker.RecordConsultation(ctx, r1.ID, "Other", "again"); !errors.Is(err, ErrOutcomeAlreadyComplete) {
		t.Errorf("second RecordConsultation() error = %v, want ErrOutcomeAlreadyComplete", err)
	}
	if _, err := f.linker.OpenOutcome(ctx, slot.ID, rec, "DX1", "", ""); !errors.Is(err, ErrOutcomeExists) {
		t.Errorf("second OpenOutcome() error = %v, want ErrOutcomeExists", err)
	}
}

func TestOpenOutcomeNeedsConfirmedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.slots.OpenSlot(ctx, "D001", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), "")
	f.slots.Book(ctx, s.ID, "P001")
	rec, _ := f.records.EnsureRecord(ctx, "P001", "D001")

	if _, err := f.linker.OpenOutcome(ctx, s.ID, rec, "DX1", "", ""); !errors.Is(err, ErrSlotNotConfirmed) {
		t.Errorf("pending slot error = %v, want ErrSlotNotConfirmed", err)
	}

	f.slots.Accept(ctx, s.ID, "D001")
	other, _ := f.records.EnsureRecord(ctx, "P002", "D001")
	if _, err := f.linker.OpenOutcome(ctx, s.ID, other, "DX1", "", ""); !errors.Is(err, ErrRecordMismatch) {
		t.Errorf("wrong record error = %v, want ErrRecordMismatch", err)
	}
	if _, err := f.linker.OpenOutcome(ctx, "A-9999", rec, "DX1", "", ""); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("unknown slot error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestUpdateMedicationStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, d := f.prescribed(t)
	slot := f.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	r1, err := f.linker.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", "")
	if err != nil {
		t.Fatalf("OpenOutcome() error = %v", err)
	}
	if r1.Prescription == nil || len(r1.Prescription.Medications) != 2 {
		t.Fatalf("prescription = %+v", r1.Prescription)
	}

	got, err := f.linker.UpdateMedicationStatus(ctx, "P001", r1.ID, "M007", medrecord.PrescriptionDispensed)
	if err != nil {
		t.Fatalf("UpdateMedicationStatus() error = %v", err)
	}
	item, _ := got.Prescription.Medication("M007")
	if item.Status != medrecord.PrescriptionDispensed {
		t.Errorf("M007 status = %s", item.Status)
	}

	reread, _ := f.linker.Get(ctx, r1.ID)
	item, _ = reread.Prescription.Medication("M007")
	if item.Status != medrecord.PrescriptionDispensed {
		t.Errorf("reread M007 status = %s", item.Status)
	}
	if reread.Prescription.Dispensed() {
		t.Error("prescription dispensed with M001 still pending")
	}

	tests := []struct {
		name     string
		patient  string
		outcome  string
		medicine string
		status   medrecord.PrescriptionStatus
		want     error
	}{
		{"unknown medicine", "P001", r1.ID, "M999", medrecord.PrescriptionDispensed, ErrMedicationNotFound},
		{"unknown outcome", "P001", "AOR-9999", "M007", medrecord.PrescriptionDispensed, ErrOutcomeNotFound},
		{"patient without outcomes", "P404", r1.ID, "M007", medrecord.PrescriptionDispensed, ErrNoOutcomesForPatient},
		{"already dispensed", "P001", r1.ID, "M007", medrecord.PrescriptionDispensed, ErrInvalidStatusTransition},
		{"back to pending", "P001", r1.ID, "M001", medrecord.PrescriptionPending, ErrInvalidStatusTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.linker.UpdateMedicationStatus(ctx, tt.patient, tt.outcome, tt.medicine, tt.status); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	m001, _ := reread.Prescription.Medication("M001")
	after, _ := f.linker.Get(ctx, r1.ID)
	if got, _ := after.Prescription.Medication("M001"); got.Status != m001.Status {
		t.Errorf("M001 changed by failed updates: %s", got.Status)
	}

	// line item and outcome tables agree after a reload
	repo2, err := NewCSVRepository(mustReopen(t, f.db))
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := repo2.Get(ctx, r1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if item, _ := reloaded.Prescription.Medication("M007"); item.Status != medrecord.PrescriptionDispensed {
		t.Errorf("reloaded M007 status = %s", item.Status)
	}
	if reloaded.TypeOfService != "General" || !reloaded.AppointmentTime.Equal(slot.Time) || reloaded.AppointmentID != slot.ID {
		t.Errorf("reloaded = %+v", reloaded)
	}
}

func TestNoPrescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	rec, _ := f.records.EnsureRecord(ctx, "P001", "D001")
	r, _ := f.linker.OpenOutcome(ctx, slot.ID, rec, "DX-0404", "", "")

	if _, err := f.linker.UpdateMedicationStatus(ctx, "P001", r.ID, "M001", medrecord.PrescriptionDispensed); !errors.Is(err, ErrNoPrescription) {
		t.Errorf("error = %v, want ErrNoPrescription", err)
	}
}

func TestDispenseMedication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, d := f.prescribed(t)
	slot := f.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	r, err := f.linker.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", "")
	if err != nil {
		t.Fatal(err)
	}

	pending, _ := f.linker.PendingDispense(ctx)
	if len(pending) != 1 || pending[0].ID != r.ID {
		t.Fatalf("PendingDispense() = %v", pending)
	}

	if _, err := f.medicines.UpdateStock(ctx, "M001", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.linker.DispenseMedication(ctx, "P001", r.ID, "M001"); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("DispenseMedication() error = %v, want ErrInsufficientStock", err)
	}
	still, _ := f.linker.Get(ctx, r.ID)
	if item, _ := still.Prescription.Medication("M001"); item.Status != medrecord.PrescriptionPending {
		t.Errorf("M001 status after failed dispense = %s", item.Status)
	}

	if _, err := f.linker.DispenseMedication(ctx, "P001", r.ID, "M007"); err != nil {
		t.Fatalf("DispenseMedication() error = %v", err)
	}
	m7, _ := f.medicines.Get(ctx, "M007")
	if m7.InventoryStock != 8 {
		t.Errorf("M007 stock = %d, want 8", m7.InventoryStock)
	}

	f.medicines.UpdateStock(ctx, "M001", 5)
	done, err := f.linker.DispenseMedication(ctx, "P001", r.ID, "M001")
	if err != nil {
		t.Fatalf("DispenseMedication() error = %v", err)
	}
	if !done.Prescription.Dispensed() {
		t.Error("prescription not dispensed after every line item")
	}
	if pending, _ := f.linker.PendingDispense(ctx); len(pending) != 0 {
		t.Errorf("PendingDispense() = %v, want none", pending)
	}

	if _, err := f.linker.DispenseMedication(ctx, "P001", r.ID, "M001"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("repeat dispense error = %v, want ErrInvalidStatusTransition", err)
	}
	m1, _ := f.medicines.Get(ctx, "M001")
	if m1.InventoryStock != 4 {
		t.Errorf("M001 stock = %d, want 4", m1.InventoryStock)
	}
}

func TestForPatientOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, _ := f.records.EnsureRecord(ctx, "P001", "D001")
	late := f.confirmedSlot(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	early := f.confirmedSlot(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	f.linker.OpenOutcome(ctx, late.ID, rec, "DX1", "", "")
	f.linker.OpenOutcome(ctx, early.ID, rec, "DX2", "", "")

	got, err := f.linker.ForPatient(ctx, "P001")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].AppointmentID != early.ID || got[1].AppointmentID != late.ID {
		t.Errorf("ForPatient() = %+v", got)
	}
	if mine, _ := f.linker.ForDoctor(ctx, "D001"); len(mine) != 2 {
		t.Errorf("ForDoctor() = %d records, want 2", len(mine))
	}
}

func mustReopen(t *testing.T, db *store.DB) *store.DB {
	t.Helper()
	db2, err := store.Open(db.Dir())
	if err != nil {
		t.Fatal(err)
	}
	return db2
}

type unlinkableSlots struct {
	Slots
}

func (unlinkableSlots) AttachOutcome(context.Context, string, string) (*appointment.Appointment, error) {
	return nil, errors.New("appointments.csv: read-only file system")
}

func TestOpenOutcomeDropsRecordWhenLinkFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, d := f.prescribed(t)
	slot := f.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	broken := NewLinker(f.linker.repo, unlinkableSlots{f.slots}, f.medicines, redisclient.NewProcessLocker(), audit.Discard{}, f.linker.ids, nil)
	if _, err := broken.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", ""); err == nil {
		t.Fatal("OpenOutcome() succeeded without linking the slot")
	}

	left, err := f.linker.ForPatient(ctx, "P001")
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("outcome records after failed link = %+v", left)
	}

	// the slot is still free to receive an outcome
	r, err := f.linker.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", "")
	if err != nil {
		t.Fatalf("OpenOutcome() after failed link error = %v", err)
	}
	linked, _ := f.slots.Get(ctx, slot.ID)
	if linked.OutcomeID != r.ID {
		t.Errorf("slot outcome = %q, want %s", linked.OutcomeID, r.ID)
	}
}

func TestTwoLinkersOnOneDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	locker := redisclient.NewProcessLocker()
	first := newFixtureOn(t, dir, locker)
	second := newFixtureOn(t, dir, locker)

	rec, d := first.prescribed(t)
	slot := first.confirmedSlot(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	r, err := first.linker.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := second.linker.OpenOutcome(ctx, slot.ID, rec, d.ID, "General", ""); !errors.Is(err, ErrOutcomeExists) {
		t.Errorf("second OpenOutcome() error = %v, want ErrOutcomeExists", err)
	}

	if _, err := first.linker.DispenseMedication(ctx, "P001", r.ID, "M007"); err != nil {
		t.Fatalf("DispenseMedication() error = %v", err)
	}
	if _, err := second.linker.DispenseMedication(ctx, "P001", r.ID, "M007"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("second DispenseMedication() error = %v, want ErrInvalidStatusTransition", err)
	}
	m, err := second.medicines.Get(ctx, "M007")
	if err != nil || m.InventoryStock != 8 {
		t.Errorf("M007 after one dispense = %+v, %v", m, err)
	}

	other := second.confirmedSlot(t, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))
	if other.ID != "A-0002" {
		t.Errorf("second slot id = %s, want A-0002", other.ID)
	}
	r2, err := second.linker.OpenOutcome(ctx, other.ID, rec, d.ID, "Follow-up", "")
	if err != nil {
		t.Fatal(err)
	}
	if r2.ID == r.ID {
		t.Errorf("both outcomes got id %s", r.ID)
	}
}
