package regions

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/commerce"
)

type ctxKey struct{}

// Resolved is the region chosen for a request.
type Resolved struct {
	CountryCode string
	Region      commerce.Region
}

func WithResolved(ctx context.Context, resolved Resolved) context.Context {
	return context.WithValue(ctx, ctxKey{}, resolved)
}

func FromContext(ctx context.Context) (Resolved, bool) {
	resolved, ok := ctx.Value(ctxKey{}).(Resolved)
	return resolved, ok
}
