package console

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/authorize"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/outcome"
	"github.com/hackgods/hospital-management-system/internal/personnel"
	"github.com/hackgods/hospital-management-system/internal/session"
)

// Deps are the services the menus dispatch to.
type Deps struct {
	Sessions  *session.Manager
	Accounts  *personnel.Service
	Slots     *appointment.Service
	Records   *medrecord.Service
	Medicines *inventory.Service
	Outcomes  *outcome.Linker
	Log       *zap.Logger
}

type App struct {
	Deps
	p   *Prompter
	out io.Writer
}

func New(in io.Reader, out io.Writer, d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &App{Deps: d, p: NewPrompter(in, out), out: out}
}

type menuItem struct {
	label string
	res   authorize.Resource
	act   authorize.Action
	run   func(ctx context.Context) error
}

// Run shows the login screen until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	a.p.Println("Hospital Management System")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		choice, err := a.p.Choose("\nMain menu", []string{"Log in", "Exit"})
		if errors.Is(err, ErrInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if choice == 1 {
			a.p.Println("Goodbye.")
			return nil
		}

		err = a.loginFlow(ctx)
		if errors.Is(err, ErrInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (a *App) loginFlow(ctx context.Context) error {
	id, err := a.p.ReadRequired("Hospital ID: ")
	if err != nil {
		return err
	}
	password, err := a.p.ReadLine("Password: ")
	if err != nil {
		return err
	}
	s, err := a.Sessions.Login(ctx, id, password)
	if err != nil {
		a.fail(err)
		return nil
	}
	defer a.Sessions.Logout()
	a.p.Printf("Welcome, %s (%s).\n", s.Name, s.Role)

	if s.MustChangePassword {
		a.p.Println("You must change your password before continuing.")
		for {
			err := a.changePassword(ctx)
			if err == nil {
				break
			}
			if errors.Is(err, ErrInputClosed) {
				return err
			}
			a.fail(err)
		}
	}

	switch s.Role {
	case personnel.RolePatient:
		return a.runMenu(ctx, "Patient menu", a.patientMenu(s.UserID))
	case personnel.RoleDoctor:
		return a.runMenu(ctx, "Doctor menu", a.doctorMenu(s.UserID))
	case personnel.RolePharmacist:
		return a.runMenu(ctx, "Pharmacist menu", a.pharmacistMenu(s.UserID))
	case personnel.RoleAdmin:
		return a.runMenu(ctx, "Administrator menu", a.adminMenu(s.UserID))
	}
	return nil
}

// runMenu loops until the user logs out. Failures of an item are printed and
// the menu is shown again.
func (a *App) runMenu(ctx context.Context, title string, items []menuItem) error {
	labels := make([]string, 0, len(items)+1)
	for _, it := range items {
		labels = append(labels, it.label)
	}
	labels = append(labels, "Log out")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		choice, err := a.p.Choose("\n"+title, labels)
		if err != nil {
			return err
		}
		if choice == len(items) {
			return nil
		}
		it := items[choice]
		if err := a.Sessions.Authorize(it.res, it.act); err != nil {
			a.fail(err)
			continue
		}
		err = it.run(ctx)
		if errors.Is(err, ErrInputClosed) {
			return err
		}
		if err != nil {
			a.fail(err)
		}
	}
}

func (a *App) changePassword(ctx context.Context) error {
	s, err := a.Sessions.Current()
	if err != nil {
		return err
	}
	old, err := a.p.ReadLine("Current password: ")
	if err != nil {
		return err
	}
	next, err := a.p.ReadLine("New password: ")
	if err != nil {
		return err
	}
	again, err := a.p.ReadLine("Repeat new password: ")
	if err != nil {
		return err
	}
	if next != again {
		return errors.New("passwords do not match")
	}
	if err := a.Accounts.ChangePassword(ctx, s.UserID, old, next); err != nil {
		return err
	}
	a.Sessions.PasswordChanged()
	a.p.Println("Password changed.")
	return nil
}

func (a *App) changePasswordItem() menuItem {
	return menuItem{"Change password", authorize.ResourceProfile, authorize.ActionWrite, a.changePassword}
}

func (a *App) fail(err error) {
	a.Log.Debug("console operation failed", zap.Error(err))
	a.p.Printf("Error: %v\n", err)
}

func (a *App) readGender() (personnel.Gender, error) {
	genders := []personnel.Gender{personnel.GenderMale, personnel.GenderFemale, personnel.GenderOther}
	i, err := a.p.Choose("Gender", []string{"Male", "Female", "Other"})
	if err != nil {
		return "", err
	}
	return genders[i], nil
}
