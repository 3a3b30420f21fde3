package core

import (
	"context"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

type ctxKey string

const (
	CtxKeyUser ctxKey = ctxKey("user")
)

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, CtxKeyUser, u)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(CtxKeyUser).(*domain.User)
	return u
}
