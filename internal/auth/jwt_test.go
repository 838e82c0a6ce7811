package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager("unit-test-secret", opts...)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("")
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestManager_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, WithClock(clock.Now))

	token, issued, err := m.Issue("user-1", user.RoleCustomer)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, "user-1", issued.UserID())
	assert.NotEmpty(t, issued.JTI())
	assert.Equal(t, clock.t.Add(TokenTTL), issued.ExpiresAt.Time)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID())
	assert.Equal(t, user.RoleCustomer, got.Role)
	assert.Equal(t, issued.JTI(), got.JTI())
}

func TestManager_IssueIsUniquePerCall(t *testing.T) {
	m := newTestManager(t)

	a, ca, err := m.Issue("user-1", user.RoleAdmin)
	require.NoError(t, err)
	b, cb, err := m.Issue("user-1", user.RoleAdmin)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, ca.JTI(), cb.JTI())
}

func TestManager_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, WithClock(clock.Now))

	token, _, err := m.Issue("user-1", user.RoleCustomer)
	require.NoError(t, err)

	issuedAt := clock.t

	clock.t = issuedAt.Add(TokenTTL - time.Second)
	_, err = m.Verify(token)
	require.NoError(t, err, "token must still be valid just before 72h")

	clock.t = issuedAt.Add(TokenTTL + time.Second)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.True(t, IsExpired(err))
}

func TestManager_RejectsTamperedSignature(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.Issue("user-1", user.RoleCustomer)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// the first signature char always maps to real bits; the last may be padding
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestManager_RejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t)

	customer, _, err := m.Issue("user-1", user.RoleCustomer)
	require.NoError(t, err)
	admin, _, err := m.Issue("user-1", user.RoleAdmin)
	require.NoError(t, err)

	c := strings.Split(customer, ".")
	a := strings.Split(admin, ".")

	// admin claims under the customer signature
	_, err = m.Verify(c[0] + "." + a[1] + "." + c[2])
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestManager_RejectsOtherSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("another-secret")
	require.NoError(t, err)

	token, _, err := other.Issue("user-1", user.RoleCustomer)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	m := newTestManager(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "jti-1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	require.ErrorIs(t, err, ErrUnauthenticated)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)
	_, err = m.Verify(hs512)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestManager_RejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	for _, raw := range []string{"", "abc", "a.b.c", "Bearer x"} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, ErrUnauthenticated, "input %q", raw)
	}
}

func TestManager_RejectsUnknownRole(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.Issue("user-1", user.Role("root"))
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
