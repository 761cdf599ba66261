package middleware

import "context"

// Actor is the authenticated admin behind a request.
type Actor struct {
	ID   string
	Role string
}

type actorKey struct{}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, Actor{ID: actorID, Role: role})
}

// ActorFromContext returns the actor and whether one was set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

func ActorIDFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.ID
}

func RoleFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.Role
}
