package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var ErrDenylistDisabled = errors.New("token revocation is not configured")

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	// Create must fail with user.ErrEmailTaken when the email exists.
	Create(ctx context.Context, u user.User) (user.User, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
}

// Recorder receives auth outcomes for metrics; result is "ok" or an error class.
type Recorder interface {
	ObserveAuth(op, result string)
	ObserveSession(role string)
}

type Session struct {
	User      user.Public
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   *Manager
	denylist Denylist
	recorder Recorder
	log      *slog.Logger
	validate *validator.Validate

	allowPrivilegedSignup bool
}

type ServiceConfig struct {
	Users    UserStore
	Hasher   PasswordHasher
	Tokens   *Manager
	Denylist Denylist
	Recorder Recorder
	Logger   *slog.Logger

	AllowPrivilegedSignup bool
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Tokens == nil {
		return nil, ErrMissingSecret
	}
	if cfg.Users == nil || cfg.Hasher == nil {
		return nil, errors.New("auth: user store and hasher are required")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonFieldName)

	return &Service{
		users:                 cfg.Users,
		hasher:                cfg.Hasher,
		tokens:                cfg.Tokens,
		denylist:              cfg.Denylist,
		recorder:              cfg.Recorder,
		log:                   log,
		validate:              v,
		allowPrivilegedSignup: cfg.AllowPrivilegedSignup,
	}, nil
}

func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (Session, error) {
	req = trimRegister(req)

	if err := s.validateStruct(req); err != nil {
		s.observe("register", "validation")
		return Session{}, err
	}

	// bcrypt reads bytes, the validator counts runes
	if len(req.Password) > maxPasswordBytes {
		s.observe("register", "validation")
		return Session{}, passwordTooLong()
	}

	role := user.RoleCustomer
	if req.Role != "" {
		r, err := user.ParseRole(req.Role)
		if err != nil {
			s.observe("register", "validation")
			return Session{}, newValidationError(FieldError{Field: "role", Rule: "oneof", Message: "must be one of customer, admin, personnel"})
		}
		if r.IsPrivileged() && !s.allowPrivilegedSignup {
			s.observe("register", "validation")
			return Session{}, newValidationError(FieldError{Field: "role", Rule: "privileged", Message: "cannot be self-assigned"})
		}
		role = r
	}

	email := user.NormalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.observe("register", "conflict")
		return Session{}, ErrConflict
	case !errors.Is(err, user.ErrNotFound):
		s.observe("register", "error")
		return Session{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.observe("register", "validation")
			return Session{}, passwordTooLong()
		}
		s.observe("register", "error")
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, user.New(req, hash, role))
	if err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, user.ErrEmailTaken) {
			s.observe("register", "conflict")
			return Session{}, ErrConflict
		}
		s.observe("register", "error")
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.newSession(created)
	if err != nil {
		s.observe("register", "error")
		return Session{}, err
	}

	s.log.InfoContext(ctx, "auth.registered", "user_id", created.ID, "role", created.Role)
	s.observe("register", "ok")
	return sess, nil
}

func (s *Service) Login(ctx context.Context, req user.LoginRequest) (Session, error) {
	req.Email = strings.TrimSpace(req.Email)

	if req.Email == "" || req.Password == "" {
		s.observe("login", "validation")
		fields := make([]FieldError, 0, 2)
		if req.Email == "" {
			fields = append(fields, FieldError{Field: "email", Rule: "required", Message: "is required"})
		}
		if req.Password == "" {
			fields = append(fields, FieldError{Field: "password", Rule: "required", Message: "is required"})
		}
		return Session{}, newValidationError(fields...)
	}

	found, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.observe("login", "error")
			return Session{}, fmt.Errorf("lookup email: %w", err)
		}
		// burn the same bcrypt work as a real comparison
		_ = s.hasher.CheckPassword("", req.Password)
		s.log.InfoContext(ctx, "auth.login_failed", "reason", "unknown_email")
		s.observe("login", "invalid_credentials")
		return Session{}, invalidCredentials()
	}

	if err := s.hasher.CheckPassword(found.PasswordHash, req.Password); err != nil {
		s.log.InfoContext(ctx, "auth.login_failed", "reason", "password_mismatch", "user_id", found.ID)
		s.observe("login", "invalid_credentials")
		return Session{}, invalidCredentials()
	}

	sess, err := s.newSession(found)
	if err != nil {
		s.observe("login", "error")
		return Session{}, err
	}

	s.observe("login", "ok")
	return sess, nil
}

// Authenticate verifies a raw bearer token. Every failure wraps
// ErrUnauthenticated; the wrapped detail is for logs only.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.observe("authenticate", "unauthenticated")
		return nil, err
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			// the denylist only narrows validity; an outage must not lock everyone out
			s.log.WarnContext(ctx, "auth.denylist_unavailable", "err", err)
		} else if revoked {
			s.observe("authenticate", "revoked")
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrRevoked)
		}
	}

	s.observe("authenticate", "ok")
	return claims, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if s.denylist == nil {
		return ErrDenylistDisabled
	}
	if claims == nil || claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing claims", ErrUnauthenticated)
	}

	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.observe("logout", "ok")
	return nil
}

// Identity returns the public view of a stored identity.
func (s *Service) Identity(ctx context.Context, id string) (user.Public, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.Public{}, err
	}
	return u.Public(), nil
}

func (s *Service) newSession(u user.User) (Session, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	if s.recorder != nil {
		s.recorder.ObserveSession(string(u.Role))
	}

	return Session{
		User:      u.Public(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok && rest != "" {
			field = rest
		}
		fields = append(fields, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Message: "failed " + fe.Tag() + " validation",
		})
	}
	return newValidationError(fields...)
}

func (s *Service) observe(op, result string) {
	if s.recorder != nil {
		s.recorder.ObserveAuth(op, result)
	}
}

func passwordTooLong() error {
	return newValidationError(FieldError{Field: "password", Rule: "max", Message: "must be at most 72 bytes"})
}

func trimRegister(req user.RegisterRequest) user.RegisterRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Role = strings.TrimSpace(req.Role)
	if req.Address != nil {
		a := *req.Address
		a.Street = strings.TrimSpace(a.Street)
		a.City = strings.TrimSpace(a.City)
		a.State = strings.TrimSpace(a.State)
		a.PostalCode = strings.TrimSpace(a.PostalCode)
		a.Country = strings.TrimSpace(a.Country)
		req.Address = &a
	}
	return req
}

func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}
