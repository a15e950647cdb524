package personnel

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/hospital-management-system/internal/store"
)

func newTestService(t *testing.T, burst int) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo, err := NewCSVRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[Role]store.IDGenerator, len(Roles))
	for _, role := range Roles {
		role := role
		ids[role] = store.NewSequenceIDs(role.Prefix(), 3, func() []string { return repo.IDs(role) })
	}
	svc := NewService(repo, ids, 0, burst, nil)
	svc.cost = bcrypt.MinCost
	return svc, db
}

func TestRegisterAssignsRolePrefixes(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()

	tests := []struct {
		role Role
		want string
	}{
		{RolePatient, "P001"},
		{RoleDoctor, "D001"},
		{RolePharmacist, "PH001"},
		{RoleAdmin, "AD001"},
		{RolePatient, "P002"},
	}
	for _, tt := range tests {
		a, err := svc.Register(ctx, NewAccount{Role: tt.role, Name: "Someone"})
		if err != nil {
			t.Fatalf("Register(%s) error = %v", tt.role, err)
		}
		if a.ID != tt.want {
			t.Errorf("Register(%s) id = %s, want %s", tt.role, a.ID, tt.want)
		}
		if !a.MustChangePassword {
			t.Errorf("%s registered without password should have to change it", a.ID)
		}
	}
}

func TestRegisterValidates(t *testing.T) {
	svc, _ := newTestService(t, 5)
	tests := []struct {
		name string
		in   NewAccount
		want error
	}{
		{"no role", NewAccount{Name: "X"}, ErrInvalidAccount},
		{"no name", NewAccount{Role: RoleDoctor}, ErrInvalidAccount},
		{"bad email", NewAccount{Role: RoleDoctor, Name: "X", Email: "not-an-email"}, ErrInvalidAccount},
		{"weak password", NewAccount{Role: RoleDoctor, Name: "X", Password: "short"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthenticateAndChangePassword(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()
	a, _ := svc.Register(ctx, NewAccount{Role: RolePatient, Name: "Alex Doe"})

	if _, err := svc.Authenticate(ctx, a.ID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "P999", DefaultPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown id error = %v, want ErrInvalidCredentials", err)
	}
	got, err := svc.Authenticate(ctx, a.ID, DefaultPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Role != RolePatient {
		t.Errorf("role = %s", got.Role)
	}

	if err := svc.ChangePassword(ctx, a.ID, DefaultPassword, "weakpass"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak new password error = %v, want ErrWeakPassword", err)
	}
	if err := svc.ChangePassword(ctx, a.ID, "nope", "Str0ngPass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password error = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(ctx, a.ID, DefaultPassword, "Str0ngPass"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	after, err := svc.Authenticate(ctx, a.ID, "Str0ngPass")
	if err != nil {
		t.Fatalf("Authenticate() with new password error = %v", err)
	}
	if after.MustChangePassword {
		t.Error("MustChangePassword still set")
	}
}

func TestAuthenticateIsThrottled(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()
	a, _ := svc.Register(ctx, NewAccount{Role: RoleDoctor, Name: "Dr Who"})

	svc.Authenticate(ctx, a.ID, "x")
	svc.Authenticate(ctx, a.ID, "y")
	if _, err := svc.Authenticate(ctx, a.ID, DefaultPassword); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("third attempt error = %v, want ErrTooManyAttempts", err)
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		pw string
		ok bool
	}{
		{"Abcdefg1", true},
		{"abcdefg1", false},
		{"ABCDEFG1", false},
		{"Abcdefgh", false},
		{"Ab1", false},
	}
	for _, tt := range tests {
		err := CheckPasswordPolicy(tt.pw)
		if (err == nil) != tt.ok {
			t.Errorf("CheckPasswordPolicy(%q) = %v, want ok=%v", tt.pw, err, tt.ok)
		}
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t, 5)
	ctx := context.Background()
	svc.Register(ctx, NewAccount{Role: RoleDoctor, Name: "A", Gender: GenderFemale, Age: 45})
	svc.Register(ctx, NewAccount{Role: RoleDoctor, Name: "B", Gender: GenderMale, Age: 30})
	svc.Register(ctx, NewAccount{Role: RolePharmacist, Name: "C", Gender: GenderFemale, Age: 28})
	svc.Register(ctx, NewAccount{Role: RolePatient, Name: "D", Gender: GenderFemale, Age: 60})

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"doctors", Filter{Role: RoleDoctor}, []string{"D001", "D002"}},
		{"female staff under 50", Filter{Gender: GenderFemale, MaxAge: 50}, []string{"D001", "PH001"}},
		{"everyone over 29", Filter{MinAge: 30}, []string{"D001", "D002", "P001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestAccountsSurviveReload(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()
	a, _ := svc.Register(ctx, NewAccount{Role: RolePatient, Name: "Sam Lee", Gender: GenderOther, Age: 33, BloodType: "ab-"})
	if _, err := svc.UpdateContact(ctx, a.ID, "sam@example.com", "555-0101"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove(ctx, "P404"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Remove() unknown error = %v, want ErrAccountNotFound", err)
	}

	db2, _ := store.Open(db.Dir())
	repo2, err := NewCSVRepository(db2)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	got, err := repo2.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != RolePatient || got.Email != "sam@example.com" || got.BloodType != "AB-" || got.Age != 33 ||
		got.PasswordHash != a.PasswordHash || !got.MustChangePassword {
		t.Errorf("reloaded = %+v", got)
	}
}
