package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RolePersonnel Role = "personnel"
)

var (
	ErrInvalidRole = errors.New("invalid role")
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email is already in use")
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RolePersonnel:
		return true
	default:
		return false
	}
}

// IsPrivileged reports roles that grant access to the admin/personnel console.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RolePersonnel
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

type Address struct {
	Street     string `json:"street" binding:"required,max=200"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state,omitempty" binding:"omitempty,max=100"`
	PostalCode string `json:"postalCode,omitempty" binding:"omitempty,max=20"`
	Country    string `json:"country,omitempty" binding:"omitempty,max=100"`
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Address      Address   `json:"address"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the identity as it may leave the service.
type Public struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     Address   `json:"address"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u User) Public() Public {
	return Public{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}

type RegisterRequest struct {
	FirstName   string   `json:"firstName" binding:"required,max=80"`
	LastName    string   `json:"lastName" binding:"required,max=80"`
	Email       string   `json:"email" binding:"required,email,max=254"`
	PhoneNumber string   `json:"phoneNumber" binding:"required,max=32"`
	Password    string   `json:"password" binding:"required,min=6,max=72"`
	Address     *Address `json:"address" binding:"required"`
	Role        string   `json:"role" binding:"omitempty,oneof=customer admin personnel"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New builds an identity from a validated registration; the caller supplies
// the already-hashed secret.
func New(req RegisterRequest, passwordHash string, role Role) User {
	now := time.Now().UTC()

	u := User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        NormalizeEmail(req.Email),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
	return u
}
