package audit

import (
	"context"

	"github.com/upb/inventory-identity/models"
)

type requestMetaKey struct{}

// WithRequestMeta attaches request attributes recorded with every audit event of the request
func WithRequestMeta(ctx context.Context, meta models.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the request attributes attached by WithRequestMeta
func RequestMetaFrom(ctx context.Context) (models.RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(models.RequestMeta)
	return meta, ok
}
