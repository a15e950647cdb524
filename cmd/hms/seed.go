package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/hospital"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/logging"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

type seedOptions struct {
	doctors     int
	pharmacists int
	patients    int
	days        int
	password    string
	seed        int64
}

var seedMedicines = []string{
	"Paracetamol", "Ibuprofen", "Amoxicillin", "Metformin", "Omeprazole",
	"Salbutamol", "Cetirizine", "Atorvastatin", "Lisinopril", "Prednisolone",
}

var seedLocations = []string{"Clinic A", "Clinic B", "Room 101", "Room 204", "Outpatients"}

func newSeedCommand() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty data directory with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg, logging.Options{ToStdout: true})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			sys, err := hospital.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer sys.Close()

			existing, err := sys.Accounts.List(ctx, personnel.Filter{})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return fmt.Errorf("data directory %s already has %d accounts, refusing to seed", cfg.DataDir, len(existing))
			}

			if opts.seed == 0 {
				opts.seed = time.Now().UnixNano()
			}
			gofakeit.Seed(opts.seed)

			return seed(ctx, sys, opts, log)
		},
	}

	cmd.Flags().IntVar(&opts.doctors, "doctors", 4, "number of doctors")
	cmd.Flags().IntVar(&opts.pharmacists, "pharmacists", 2, "number of pharmacists")
	cmd.Flags().IntVar(&opts.patients, "patients", 20, "number of patients")
	cmd.Flags().IntVar(&opts.days, "days", 5, "days of availability to open per doctor")
	cmd.Flags().StringVar(&opts.password, "password", "", "password for every seeded account (default: must be changed at first login)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (default: current time)")

	return cmd
}

func seed(ctx context.Context, sys *hospital.System, opts seedOptions, log *zap.Logger) error {
	admin, err := sys.Bootstrap(ctx)
	if err != nil {
		return err
	}

	doctors, err := seedAccounts(ctx, sys, personnel.RoleDoctor, opts.doctors, opts.password)
	if err != nil {
		return err
	}
	if _, err := seedAccounts(ctx, sys, personnel.RolePharmacist, opts.pharmacists, opts.password); err != nil {
		return err
	}
	patients, err := seedAccounts(ctx, sys, personnel.RolePatient, opts.patients, opts.password)
	if err != nil {
		return err
	}

	for _, name := range seedMedicines {
		if _, err := sys.Medicines.Add(ctx, inventory.NewMedicine{
			Name:               name,
			Manufacturer:       gofakeit.Company(),
			ExpiryDate:         time.Now().AddDate(0, gofakeit.Number(1, 24), 0).Truncate(24 * time.Hour),
			InventoryStock:     gofakeit.Number(0, 200),
			LowStockLevel:      gofakeit.Number(10, 30),
			ReplenishmentStock: 100,
		}); err != nil {
			return fmt.Errorf("seed medicine %s: %w", name, err)
		}
	}

	day := time.Now().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	var slots []appointment.Appointment
	for _, doctorID := range doctors {
		location := seedLocations[gofakeit.Number(0, len(seedLocations)-1)]
		for d := 0; d < opts.days; d++ {
			from := day.AddDate(0, 0, d).Add(9 * time.Hour)
			created, err := sys.Slots.GenerateAvailability(ctx, doctorID, from, from.Add(3*time.Hour), 30*time.Minute, location)
			if err != nil {
				return fmt.Errorf("seed availability for %s: %w", doctorID, err)
			}
			slots = append(slots, created...)
		}
	}

	// Book roughly a quarter of the slots and let the doctors answer most of
	// the requests.
	booked := 0
	for _, slot := range slots {
		if len(patients) == 0 || gofakeit.Number(1, 4) != 1 {
			continue
		}
		patientID := patients[gofakeit.Number(0, len(patients)-1)]
		if _, err := sys.Slots.Book(ctx, slot.ID, patientID); err != nil {
			return err
		}
		booked++
		switch gofakeit.Number(1, 5) {
		case 1:
			// left pending
		case 2:
			if _, err := sys.Slots.Decline(ctx, slot.ID, slot.DoctorID); err != nil {
				return err
			}
		default:
			if _, err := sys.Slots.Accept(ctx, slot.ID, slot.DoctorID); err != nil {
				return err
			}
		}
	}

	log.Info("seed complete",
		zap.String("admin_id", admin.ID),
		zap.Int("doctors", len(doctors)),
		zap.Int("patients", len(patients)),
		zap.Int("medicines", len(seedMedicines)),
		zap.Int("slots", len(slots)),
		zap.Int("booked", booked),
	)
	return nil
}

func seedAccounts(ctx context.Context, sys *hospital.System, role personnel.Role, count int, password string) ([]string, error) {
	genders := []personnel.Gender{personnel.GenderMale, personnel.GenderFemale, personnel.GenderOther}
	bloodTypes := []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		in := personnel.NewAccount{
			Name:     gofakeit.Name(),
			Role:     role,
			Gender:   genders[gofakeit.Number(0, len(genders)-1)],
			Age:      gofakeit.Number(25, 65),
			Email:    strings.ToLower(gofakeit.Email()),
			Phone:    gofakeit.Phone(),
			Password: password,
		}
		if role == personnel.RolePatient {
			in.Age = gofakeit.Number(1, 90)
			in.DateOfBirth = time.Now().AddDate(-in.Age, -gofakeit.Number(0, 11), 0).Truncate(24 * time.Hour)
			in.BloodType = bloodTypes[gofakeit.Number(0, len(bloodTypes)-1)]
		}
		acc, err := sys.Accounts.Register(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", strings.ToLower(string(role)), err)
		}
		ids = append(ids, acc.ID)
	}
	return ids, nil
}
