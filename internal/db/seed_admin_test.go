package db

import (
	"context"
	"testing"

	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/geocoder89/prefabstore/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainHasher struct{}

func (plainHasher) HashPassword(plain string) (string, error) { return "hashed:" + plain, nil }

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	cfg := config.Config{
		AdminEmail:     "Admin@Example.com",
		AdminPassword:  "changeme",
		AdminFirstName: "Site",
		AdminLastName:  "Admin",
	}

	created, err := EnsureAdminUser(ctx, repo, plainHasher{}, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := repo.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.Equal(t, "hashed:changeme", u.PasswordHash)

	created, err = EnsureAdminUser(ctx, repo, plainHasher{}, cfg)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, repo.Count())
}

func TestEnsureAdminUser_SkippedWithoutCredentials(t *testing.T) {
	repo := memory.NewUsersRepo()

	created, err := EnsureAdminUser(context.Background(), repo, plainHasher{}, config.Config{AdminEmail: "a@b.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, repo.Count())
}
