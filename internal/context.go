package internal

import (
	"context"
	"time"
)

// DefaultTimeout bounds store calls made outside a request, such as startup pings.
const DefaultTimeout = 5 * time.Second

type actorKey struct{}

// WithActor records the id of the account on whose behalf ctx runs.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting account id. ok is false for background work
// and unauthenticated requests.
func ActorFrom(ctx context.Context) (userID int64, ok bool) {
	if ctx == nil {
		return 0, false
	}
	userID, ok = ctx.Value(actorKey{}).(int64)
	return userID, ok && userID > 0
}

func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
