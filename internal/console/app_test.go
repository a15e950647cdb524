package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/config"
	"github.com/hackgods/hospital-management-system/internal/hospital"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

const testPassword = "Passw0rd"

func openSystem(t *testing.T) *hospital.System {
	t.Helper()
	sys, err := hospital.Open(context.Background(), config.Config{
		DataDir:    t.TempDir(),
		IDMode:     "sequence",
		LoginRate:  1,
		LoginBurst: 10,
	}, nil)
	if err != nil {
		t.Fatalf("open system: %v", err)
	}
	t.Cleanup(sys.Close)
	return sys
}

func register(t *testing.T, sys *hospital.System, role personnel.Role, name, password string) string {
	t.Helper()
	acc, err := sys.Accounts.Register(context.Background(), personnel.NewAccount{
		Name:     name,
		Role:     role,
		Gender:   personnel.GenderFemale,
		Age:      40,
		Password: password,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return acc.ID
}

func runScript(t *testing.T, sys *hospital.System, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := New(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, Deps{
		Sessions:  sys.Sessions,
		Accounts:  sys.Accounts,
		Slots:     sys.Slots,
		Records:   sys.Records,
		Medicines: sys.Medicines,
		Outcomes:  sys.Outcomes,
	})
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v\noutput:\n%s", err, out.String())
	}
	return out.String()
}

func TestConsoleBookingRoundTrip(t *testing.T) {
	sys := openSystem(t)
	ctx := context.Background()
	doctor := register(t, sys, personnel.RoleDoctor, "Dr Grey", testPassword)
	patient := register(t, sys, personnel.RolePatient, "Ann Lee", testPassword)
	if doctor != "D001" || patient != "P001" {
		t.Fatalf("ids = %s, %s", doctor, patient)
	}
	if _, err := sys.Medicines.Add(ctx, inventory.NewMedicine{Name: "Paracetamol", InventoryStock: 50, LowStockLevel: 5}); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, sys,
		// doctor opens a slot
		"1", doctor, testPassword, "5", "2030-01-10 09:00", "Room 1", "11",
		// patient books it
		"1", patient, testPassword, "4", "A-0001", "11",
		// doctor accepts
		"1", doctor, testPassword, "7", "1", "11",
		"2",
	)
	if strings.Contains(out, "Error:") {
		t.Fatalf("unexpected error in output:\n%s", out)
	}
	if !strings.Contains(out, "Opened A-0001.") {
		t.Errorf("output missing slot confirmation:\n%s", out)
	}

	slot, err := sys.Slots.Get(ctx, "A-0001")
	if err != nil {
		t.Fatal(err)
	}
	if slot.Status != appointment.StatusConfirmed || slot.PatientID != patient {
		t.Fatalf("slot = %+v, want CONFIRMED for %s", slot, patient)
	}

	out = runScript(t, sys,
		"1", doctor, testPassword, "9", "A-0001",
		"1", "Influenza", "Rest", "y", "M001", "2", "5", "twice daily", "n",
		"Consultation", "Fever for two days", "n",
		"11", "2",
	)
	if strings.Contains(out, "Error:") {
		t.Fatalf("unexpected error in output:\n%s", out)
	}

	records, err := sys.Outcomes.ForPatient(ctx, patient)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d outcome records, want 1", len(records))
	}
	r := records[0]
	if r.TypeOfService != "Consultation" || r.Prescription == nil || len(r.Prescription.Medications) != 1 {
		t.Fatalf("outcome = %+v", r)
	}
	if m := r.Prescription.Medications[0]; m.MedicineID != "M001" || m.Status != medrecord.PrescriptionPending {
		t.Errorf("medication = %+v, want M001 PENDING", m)
	}

	slot, err = sys.Slots.Get(ctx, "A-0001")
	if err != nil {
		t.Fatal(err)
	}
	if slot.Status != appointment.StatusConfirmed || slot.OutcomeID != r.ID {
		t.Errorf("slot after outcome = %+v, want CONFIRMED with outcome %s", slot, r.ID)
	}
}

func TestConsoleReportsErrorsAndContinues(t *testing.T) {
	sys := openSystem(t)
	ctx := context.Background()
	doctor := register(t, sys, personnel.RoleDoctor, "Dr Grey", testPassword)
	patient := register(t, sys, personnel.RolePatient, "Ann Lee", testPassword)
	if _, err := sys.Slots.OpenSlot(ctx, doctor, time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC), "Room 1"); err != nil {
		t.Fatal(err)
	}

	out := runScript(t, sys,
		"1", patient, "wrong",
		"1", patient, testPassword, "4", "A-9999", "4", "A-0001", "11",
		"2",
	)
	if !strings.Contains(out, "Error: invalid id or password") {
		t.Errorf("bad password not reported:\n%s", out)
	}
	if !strings.Contains(out, "Error: appointment not found") {
		t.Errorf("unknown slot not reported:\n%s", out)
	}

	slot, err := sys.Slots.Get(ctx, "A-0001")
	if err != nil {
		t.Fatal(err)
	}
	if slot.Status != appointment.StatusPending {
		t.Errorf("slot status = %s, want PENDING after the retry", slot.Status)
	}
}

func TestConsoleForcesPasswordChange(t *testing.T) {
	sys := openSystem(t)
	ctx := context.Background()
	admin, err := sys.Bootstrap(ctx)
	if err != nil || admin == nil {
		t.Fatalf("Bootstrap() = %v, %v", admin, err)
	}

	out := runScript(t, sys,
		"1", admin.ID, personnel.DefaultPassword,
		// mismatched repeat, then a valid change
		personnel.DefaultPassword, "NewPassw0rd", "Other1234",
		personnel.DefaultPassword, "NewPassw0rd", "NewPassw0rd",
		"12", "2",
	)
	if !strings.Contains(out, "You must change your password") || !strings.Contains(out, "Password changed.") {
		t.Fatalf("forced change flow not shown:\n%s", out)
	}
	if !strings.Contains(out, "Error: passwords do not match") {
		t.Errorf("mismatch not reported:\n%s", out)
	}

	acc, err := sys.Accounts.Get(ctx, admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acc.MustChangePassword {
		t.Error("MustChangePassword still set")
	}
	if _, err := sys.Accounts.Authenticate(ctx, admin.ID, "NewPassw0rd"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
