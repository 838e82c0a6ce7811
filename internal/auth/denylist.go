package auth

import (
	"context"
	"time"

	"github.com/geocoder89/prefabstore/internal/cache"
)

// Denylist records token ids that were logged out before their expiry.
// Tokens stay stateless without one; it only adds logout-before-expiry.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryDenylist keeps revoked ids in process. It is used when no Redis is
// configured, so revocations do not survive a restart or span replicas.
type MemoryDenylist struct {
	entries *cache.Cache
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: cache.New(TokenTTL)}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	d.entries.SetUntil(jti, struct{}{}, until)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := d.entries.Get(jti)
	return ok, nil
}

// Sweep drops entries whose tokens have expired anyway.
func (d *MemoryDenylist) Sweep() int {
	return d.entries.Sweep()
}
