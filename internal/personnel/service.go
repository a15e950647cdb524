package personnel

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/hackgods/hospital-management-system/internal/metrics"
	"github.com/hackgods/hospital-management-system/internal/store"
)

// DefaultPassword is given to accounts registered without one. Its holder
// must change it on first login.
const DefaultPassword = "password"

var (
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidCredentials = errors.New("invalid id or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrWeakPassword       = errors.New("password needs at least 8 characters with upper case, lower case and a digit")
	ErrSamePassword       = errors.New("new password must differ from the old one")
)

type NewAccount struct {
	Role        Role
	Name        string
	Gender      Gender
	Age         int
	DateOfBirth time.Time
	Email       string
	Phone       string
	BloodType   string
	Password    string
}

// Profile holds the fields an admin may edit on an existing account.
type Profile struct {
	Name        string
	Gender      Gender
	Age         int
	DateOfBirth time.Time
	BloodType   string
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Role   Role
	Gender Gender
	MinAge int
	MaxAge int
}

func (f Filter) match(a Account) bool {
	if f.Gender != "" && a.Gender != f.Gender {
		return false
	}
	if f.MinAge > 0 && a.Age < f.MinAge {
		return false
	}
	if f.MaxAge > 0 && a.Age > f.MaxAge {
		return false
	}
	return true
}

type Service struct {
	repo    Repository
	ids     map[Role]store.IDGenerator
	limiter *loginLimiter
	log     *zap.Logger
	cost    int
}

// NewService wires the account service. loginRate and loginBurst bound the
// login attempts per account id.
func NewService(repo Repository, ids map[Role]store.IDGenerator, loginRate float64, loginBurst int, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		ids:     ids,
		limiter: newLoginLimiter(rate.Limit(loginRate), loginBurst),
		log:     log,
		cost:    bcrypt.DefaultCost,
	}
}

func (s *Service) Register(ctx context.Context, in NewAccount) (*Account, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidAccount, in.Role)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if in.Age < 0 {
		return nil, fmt.Errorf("%w: age must not be negative", ErrInvalidAccount)
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	mustChange := false
	if in.Password == "" {
		in.Password = DefaultPassword
		mustChange = true
	} else if err := CheckPasswordPolicy(in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	gen, ok := s.ids[in.Role]
	if !ok {
		return nil, fmt.Errorf("register account: no id generator for %s", in.Role)
	}
	a := &Account{
		Name:               in.Name,
		Role:               in.Role,
		Gender:             in.Gender,
		Age:                in.Age,
		DateOfBirth:        in.DateOfBirth,
		Email:              strings.TrimSpace(in.Email),
		Phone:              strings.TrimSpace(in.Phone),
		BloodType:          strings.ToUpper(strings.TrimSpace(in.BloodType)),
		PasswordHash:       string(hash),
		MustChangePassword: mustChange,
	}
	if err := s.repo.Create(ctx, a, gen); err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	s.log.Info("account registered", zap.String("account_id", a.ID), zap.String("role", string(a.Role)))
	return a, nil
}

// Authenticate checks the password for id. Attempts are rate limited per
// id whether or not the account exists.
func (s *Service) Authenticate(ctx context.Context, id, password string) (*Account, error) {
	id = strings.TrimSpace(id)
	if !s.limiter.allow(id) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		s.log.Warn("login throttled", zap.String("account_id", id))
		return nil, ErrTooManyAttempts
	}

	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		s.log.Info("login failed", zap.String("account_id", id))
		return nil, ErrInvalidCredentials
	}

	s.limiter.reset(id)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.log.Info("login", zap.String("account_id", id), zap.String("role", string(a.Role)))
	return a, nil
}

func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	_, err := s.repo.Update(ctx, id, func(a *Account) error {
		if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(oldPassword)); err != nil {
			return ErrInvalidCredentials
		}
		if oldPassword == newPassword {
			return ErrSamePassword
		}
		if err := CheckPasswordPolicy(newPassword); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = string(hash)
		a.MustChangePassword = false
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("account_id", id))
	return nil
}

func (s *Service) UpdateContact(ctx context.Context, id, email, phone string) (*Account, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(a *Account) {
		a.Email = strings.TrimSpace(email)
		a.Phone = strings.TrimSpace(phone)
	})
}

func (s *Service) Update(ctx context.Context, id string, p Profile) (*Account, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if p.Age < 0 {
		return nil, fmt.Errorf("%w: age must not be negative", ErrInvalidAccount)
	}
	return s.mutate(ctx, id, func(a *Account) {
		a.Name = p.Name
		a.Gender = p.Gender
		a.Age = p.Age
		a.DateOfBirth = p.DateOfBirth
		a.BloodType = strings.ToUpper(strings.TrimSpace(p.BloodType))
	})
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	s.log.Info("account removed", zap.String("account_id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns accounts matching f ordered by id.
func (s *Service) List(ctx context.Context, f Filter) ([]Account, error) {
	all, err := s.repo.List(ctx, f.Role)
	if err != nil {
		return nil, err
	}
	var out []Account
	for _, a := range all {
		if f.match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(a *Account)) (*Account, error) {
	a, err := s.repo.Update(ctx, id, func(a *Account) error {
		fn(a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update account %s: %w", id, err)
	}
	return a, nil
}

// CheckPasswordPolicy enforces length and character classes.
func CheckPasswordPolicy(pw string) error {
	if len(pw) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email %q", ErrInvalidAccount, email)
	}
	return nil
}
