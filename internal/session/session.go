// Package session tracks the account logged in to a console run.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hackgods/hospital-management-system/internal/authorize"
	"github.com/hackgods/hospital-management-system/internal/personnel"
)

var ErrNotLoggedIn = errors.New("not logged in")

type Session struct {
	UserID             string
	Name               string
	Role               personnel.Role
	MustChangePassword bool
	Started            time.Time
}

type Authenticator interface {
	Authenticate(ctx context.Context, id, password string) (*personnel.Account, error)
}

// Manager holds at most one active session.
type Manager struct {
	mu      sync.Mutex
	auth    Authenticator
	authz   *authorize.Authorizer
	current *Session
	now     func() time.Time
}

func NewManager(auth Authenticator, authz *authorize.Authorizer) *Manager {
	return &Manager{auth: auth, authz: authz, now: time.Now}
}

// Login authenticates and replaces any current session.
func (m *Manager) Login(ctx context.Context, id, password string) (*Session, error) {
	a, err := m.auth.Authenticate(ctx, id, password)
	if err != nil {
		return nil, err
	}
	s := &Session{
		UserID:             a.ID,
		Name:               a.Name,
		Role:               a.Role,
		MustChangePassword: a.MustChangePassword,
		Started:            m.now(),
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNotLoggedIn
	}
	s := *m.current
	return &s, nil
}

// PasswordChanged clears the first-login flag on the current session.
func (m *Manager) PasswordChanged() {
	m.mu.Lock()
	if m.current != nil {
		m.current.MustChangePassword = false
	}
	m.mu.Unlock()
}

// Authorize checks the current session's role.
func (m *Manager) Authorize(obj authorize.Resource, act authorize.Action) error {
	s, err := m.Current()
	if err != nil {
		return err
	}
	return m.authz.MustAuthorize(s.Role, obj, act)
}
