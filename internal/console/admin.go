package console

import (
	"context"

	"github.com/hackgods/hospital-management-system/internal/authorize"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

func (a *App) adminMenu(uid string) []menuItem {
	return []menuItem{
		{"View hospital staff", authorize.ResourceStaff, authorize.ActionRead, a.listStaff},
		{"Register an account", authorize.ResourceStaff, authorize.ActionWrite, a.registerAccount},
		{"Update a staff member", authorize.ResourceStaff, authorize.ActionWrite, a.updateStaff},
		{"Remove a staff member", authorize.ResourceStaff, authorize.ActionWrite, func(ctx context.Context) error {
			id, err := a.p.ReadRequired("Account ID: ")
			if err != nil {
				return err
			}
			if id == uid {
				a.p.Println("You cannot remove your own account.")
				return nil
			}
			ok, err := a.p.Confirm("Remove " + id + "?")
			if err != nil || !ok {
				return err
			}
			if err := a.Accounts.Remove(ctx, id); err != nil {
				return err
			}
			a.p.Println("Removed.")
			return nil
		}},
		{"View appointment details", authorize.ResourceAppointment, authorize.ActionRead, func(ctx context.Context) error {
			slots, err := a.Slots.All(ctx)
			if err != nil {
				return err
			}
			renderAppointments(a.out, slots)
			return nil
		}},
		{"View medication inventory", authorize.ResourceMedicine, authorize.ActionRead, func(ctx context.Context) error {
			meds, err := a.Medicines.List(ctx)
			if err != nil {
				return err
			}
			renderMedicines(a.out, meds)
			return nil
		}},
		{"Add a medicine", authorize.ResourceMedicine, authorize.ActionWrite, a.addMedicine},
		{"Remove a medicine", authorize.ResourceMedicine, authorize.ActionWrite, func(ctx context.Context) error {
			id, err := a.p.ReadRequired("Medicine ID: ")
			if err != nil {
				return err
			}
			if err := a.Medicines.Remove(ctx, id); err != nil {
				return err
			}
			a.p.Println("Removed.")
			return nil
		}},
		{"Update stock levels", authorize.ResourceMedicine, authorize.ActionWrite, a.updateStock},
		{"Approve replenishment requests", authorize.ResourceReplenish, authorize.ActionApprove, func(ctx context.Context) error {
			return a.approveReplenishments(ctx, uid)
		}},
		a.changePasswordItem(),
	}
}

func (a *App) listStaff(ctx context.Context) error {
	roles := []personnel.Role{"", personnel.RoleDoctor, personnel.RolePharmacist, personnel.RoleAdmin, personnel.RolePatient}
	i, err := a.p.Choose("Role", []string{"Any", "Doctor", "Pharmacist", "Administrator", "Patient"})
	if err != nil {
		return err
	}
	f := personnel.Filter{Role: roles[i]}

	g, err := a.p.Choose("Gender", []string{"Any", "Male", "Female", "Other"})
	if err != nil {
		return err
	}
	f.Gender = []personnel.Gender{"", personnel.GenderMale, personnel.GenderFemale, personnel.GenderOther}[g]

	if f.MinAge, err = a.p.ReadInt("Minimum age (0 for any): ", 0, 150); err != nil {
		return err
	}
	if f.MaxAge, err = a.p.ReadInt("Maximum age (0 for any): ", 0, 150); err != nil {
		return err
	}

	accounts, err := a.Accounts.List(ctx, f)
	if err != nil {
		return err
	}
	if f.Role == "" {
		staff := accounts[:0]
		for _, acc := range accounts {
			if acc.Role.Staff() {
				staff = append(staff, acc)
			}
		}
		accounts = staff
	}
	renderAccounts(a.out, accounts)
	return nil
}

func (a *App) registerAccount(ctx context.Context) error {
	i, err := a.p.Choose("Role", []string{"Doctor", "Pharmacist", "Administrator", "Patient"})
	if err != nil {
		return err
	}
	in := personnel.NewAccount{
		Role: []personnel.Role{personnel.RoleDoctor, personnel.RolePharmacist, personnel.RoleAdmin, personnel.RolePatient}[i],
	}
	if in.Name, err = a.p.ReadRequired("Name: "); err != nil {
		return err
	}
	if in.Gender, err = a.readGender(); err != nil {
		return err
	}
	if in.Age, err = a.p.ReadInt("Age: ", 0, 150); err != nil {
		return err
	}
	if in.Role == personnel.RolePatient {
		if in.DateOfBirth, err = a.p.ReadOptionalDate("Date of birth (YYYY-MM-DD, blank to skip): "); err != nil {
			return err
		}
		if in.BloodType, err = a.p.ReadLine("Blood type: "); err != nil {
			return err
		}
	}
	if in.Email, err = a.p.ReadLine("Email: "); err != nil {
		return err
	}
	if in.Phone, err = a.p.ReadLine("Phone: "); err != nil {
		return err
	}

	acc, err := a.Accounts.Register(ctx, in)
	if err != nil {
		return err
	}
	a.p.Printf("Registered %s. Initial password is %q and must be changed at first login.\n", acc.ID, personnel.DefaultPassword)
	return nil
}

func (a *App) updateStaff(ctx context.Context) error {
	id, err := a.p.ReadRequired("Account ID: ")
	if err != nil {
		return err
	}
	acc, err := a.Accounts.Get(ctx, id)
	if err != nil {
		return err
	}
	p := personnel.Profile{
		Name:        acc.Name,
		Gender:      acc.Gender,
		Age:         acc.Age,
		DateOfBirth: acc.DateOfBirth,
		BloodType:   acc.BloodType,
	}
	name, err := a.p.ReadLine("Name [" + acc.Name + "]: ")
	if err != nil {
		return err
	}
	if name != "" {
		p.Name = name
	}
	if p.Gender, err = a.readGender(); err != nil {
		return err
	}
	if p.Age, err = a.p.ReadInt("Age: ", 0, 150); err != nil {
		return err
	}
	if _, err := a.Accounts.Update(ctx, id, p); err != nil {
		return err
	}
	a.p.Println("Updated.")
	return nil
}

func (a *App) addMedicine(ctx context.Context) error {
	var in inventory.NewMedicine
	var err error
	if in.Name, err = a.p.ReadRequired("Name: "); err != nil {
		return err
	}
	if in.Manufacturer, err = a.p.ReadLine("Manufacturer: "); err != nil {
		return err
	}
	if in.ExpiryDate, err = a.p.ReadOptionalDate("Expiry date (YYYY-MM-DD, blank for none): "); err != nil {
		return err
	}
	if in.InventoryStock, err = a.p.ReadInt("Initial stock: ", 0, 1_000_000); err != nil {
		return err
	}
	if in.LowStockLevel, err = a.p.ReadInt("Low stock alert level: ", 0, 1_000_000); err != nil {
		return err
	}
	if in.ReplenishmentStock, err = a.p.ReadInt("Replenishment quantity: ", 0, 1_000_000); err != nil {
		return err
	}
	m, err := a.Medicines.Add(ctx, in)
	if err != nil {
		return err
	}
	a.p.Printf("Added %s.\n", m.ID)
	return nil
}

func (a *App) updateStock(ctx context.Context) error {
	id, err := a.p.ReadRequired("Medicine ID: ")
	if err != nil {
		return err
	}
	m, err := a.Medicines.Get(ctx, id)
	if err != nil {
		return err
	}
	stock, err := a.p.ReadInt("Stock: ", 0, 1_000_000)
	if err != nil {
		return err
	}
	level, err := a.p.ReadInt("Low stock alert level: ", 0, 1_000_000)
	if err != nil {
		return err
	}
	if _, err := a.Medicines.UpdateStock(ctx, m.ID, stock); err != nil {
		return err
	}
	if _, err := a.Medicines.SetLowStockLevel(ctx, m.ID, level); err != nil {
		return err
	}
	a.p.Println("Stock updated.")
	return nil
}

func (a *App) approveReplenishments(ctx context.Context, uid string) error {
	pending, err := a.Medicines.PendingReplenishments(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.p.Println("No pending replenishment requests.")
		return nil
	}
	for _, m := range pending {
		a.p.Printf("%s %s: stock %d, requested %d on %s\n",
			m.ID, m.Name, m.InventoryStock, m.ReplenishmentStock, m.ReplenishRequestDate.Format(DateLayout))
		ok, err := a.p.Confirm("Approve")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := a.Medicines.ApproveReplenishment(ctx, m.ID, uid); err != nil {
			a.fail(err)
		}
	}
	return nil
}
