package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) user.User {
	return user.User{ID: uuid.NewString(), Email: email, Role: user.RoleCustomer}
}

func TestUsersRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	created, err := r.Create(ctx, newUser("A@B.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", created.Email)

	byEmail, err := r.GetByEmail(ctx, " a@b.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	_, err := r.Create(ctx, newUser("a@b.com"))
	require.NoError(t, err)

	_, err = r.Create(ctx, newUser("a@b.com"))
	assert.ErrorIs(t, err, user.ErrEmailTaken)
	assert.Equal(t, 1, r.Count())
}

func TestUsersRepo_ConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create(ctx, newUser("race@b.com")); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.Equal(t, 1, r.Count())
}
