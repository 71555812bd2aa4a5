package session

import (
	"context"
	"time"
)

// Record is one console session as held by a Store.
type Record struct {
	ID        string
	Identity  Identity
	CreatedAt time.Time
	LastSeen  time.Time
}

type contextKey struct{}

func WithRecord(ctx context.Context, rec Record) context.Context {
	return context.WithValue(ctx, contextKey{}, rec)
}

func FromContext(ctx context.Context) (Record, bool) {
	rec, ok := ctx.Value(contextKey{}).(Record)
	return rec, ok
}

// IdentityFromContext is the accessor handlers and services use; Manager is
// the only writer.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	rec, ok := FromContext(ctx)
	if !ok || rec.Identity.Empty() {
		return Identity{}, false
	}
	return rec.Identity, true
}
