package actorctx

import (
	"context"

	"github.com/geocoder89/prefabstore/internal/domain/user"
)

type ctxKey struct{}

// Actor is the verified identity behind a request.
type Actor struct {
	UserID string
	Role   user.Role
	JTI    string
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a, ok := From(ctx)
	return a.UserID, ok
}
