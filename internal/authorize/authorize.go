// Package authorize decides which role may perform which action, using a
// fixed casbin RBAC model.
package authorize

import (
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/hackgods/hospital-management-system/internal/personnel"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

type Resource string

const (
	ResourceAppointment  Resource = "appointment"
	ResourceSchedule     Resource = "schedule"
	ResourceOutcome      Resource = "outcome"
	ResourceMedRecord    Resource = "medical_record"
	ResourcePrescription Resource = "prescription"
	ResourceMedicine     Resource = "medicine"
	ResourceReplenish    Resource = "replenishment"
	ResourceStaff        Resource = "staff"
	ResourceProfile      Resource = "profile"
)

type Action string

const (
	ActionRead     Action = "read"
	ActionWrite    Action = "write"
	ActionBook     Action = "book"
	ActionDecide   Action = "decide"
	ActionDispense Action = "dispense"
	ActionRequest  Action = "request"
	ActionApprove  Action = "approve"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicy is the hospital's role table.
var defaultPolicy = [][]string{
	{string(personnel.RolePatient), string(ResourceAppointment), string(ActionRead)},
	{string(personnel.RolePatient), string(ResourceAppointment), string(ActionBook)},
	{string(personnel.RolePatient), string(ResourceOutcome), string(ActionRead)},
	{string(personnel.RolePatient), string(ResourceMedRecord), string(ActionRead)},
	{string(personnel.RolePatient), string(ResourceProfile), "*"},

	{string(personnel.RoleDoctor), string(ResourceAppointment), string(ActionRead)},
	{string(personnel.RoleDoctor), string(ResourceAppointment), string(ActionDecide)},
	{string(personnel.RoleDoctor), string(ResourceSchedule), "*"},
	{string(personnel.RoleDoctor), string(ResourceOutcome), string(ActionRead)},
	{string(personnel.RoleDoctor), string(ResourceOutcome), string(ActionWrite)},
	{string(personnel.RoleDoctor), string(ResourceMedRecord), "*"},
	{string(personnel.RoleDoctor), string(ResourcePrescription), string(ActionWrite)},
	{string(personnel.RoleDoctor), string(ResourceMedicine), string(ActionRead)},
	{string(personnel.RoleDoctor), string(ResourceProfile), "*"},

	{string(personnel.RolePharmacist), string(ResourceOutcome), string(ActionRead)},
	{string(personnel.RolePharmacist), string(ResourcePrescription), string(ActionDispense)},
	{string(personnel.RolePharmacist), string(ResourceMedicine), string(ActionRead)},
	{string(personnel.RolePharmacist), string(ResourceReplenish), string(ActionRequest)},
	{string(personnel.RolePharmacist), string(ResourceProfile), "*"},

	{string(personnel.RoleAdmin), string(ResourceAppointment), string(ActionRead)},
	{string(personnel.RoleAdmin), string(ResourceOutcome), string(ActionRead)},
	{string(personnel.RoleAdmin), string(ResourceMedicine), "*"},
	{string(personnel.RoleAdmin), string(ResourceReplenish), string(ActionApprove)},
	{string(personnel.RoleAdmin), string(ResourceStaff), "*"},
	{string(personnel.RoleAdmin), string(ResourceProfile), "*"},
}

// Authorizer is a thin typed wrapper around casbin.Enforcer.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// New builds an in-memory enforcer loaded with the default role table.
func New() (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

func (a *Authorizer) Allowed(role personnel.Role, obj Resource, act Action) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: role %q", ErrInvalidArgs, role)
	}
	if obj == "" || act == "" {
		return false, fmt.Errorf("%w: empty resource or action", ErrInvalidArgs)
	}
	return a.enforcer.Enforce(string(role), string(obj), string(act))
}

// MustAuthorize returns ErrForbidden when role may not act on obj.
func (a *Authorizer) MustAuthorize(role personnel.Role, obj Resource, act Action) error {
	ok, err := a.Allowed(role, obj, act)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, role, act, obj)
	}
	return nil
}
