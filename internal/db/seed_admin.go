package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/domain/user"
)

type AdminSeeder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
}

// EnsureAdminUser creates the bootstrap admin when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no identity with that email exists yet.
func EnsureAdminUser(ctx context.Context, users AdminSeeder, hasher PasswordHasher, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	u := user.New(user.RegisterRequest{
		FirstName: cfg.AdminFirstName,
		LastName:  cfg.AdminLastName,
		Email:     cfg.AdminEmail,
	}, hash, user.RoleAdmin)

	_, err = users.Create(ctx, u)
	if errors.Is(err, user.ErrEmailTaken) {
		// another replica seeded it first
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
