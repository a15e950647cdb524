package personnel

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleDoctor     Role = "DOCTOR"
	RolePatient    Role = "PATIENT"
	RolePharmacist Role = "PHARMACIST"
	RoleAdmin      Role = "ADMIN"
)

// Roles lists every role in menu order.
var Roles = []Role{RolePatient, RoleDoctor, RolePharmacist, RoleAdmin}

// Prefix is the id prefix of accounts with this role.
func (r Role) Prefix() string {
	switch r {
	case RoleDoctor:
		return "D"
	case RolePatient:
		return "P"
	case RolePharmacist:
		return "PH"
	case RoleAdmin:
		return "AD"
	}
	return ""
}

func (r Role) Valid() bool { return r.Prefix() != "" }

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Staff reports whether the role belongs to hospital staff rather than a
// patient.
func (r Role) Staff() bool {
	return r == RoleDoctor || r == RolePharmacist || r == RoleAdmin
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type Account struct {
	ID                 string
	Name               string
	Role               Role
	Gender             Gender
	Age                int
	DateOfBirth        time.Time
	Email              string
	Phone              string
	BloodType          string
	PasswordHash       string
	MustChangePassword bool
}
