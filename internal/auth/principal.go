// Package auth authenticates requests and holds the permission guards used
// by the claim, group and transfer handlers.
package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	User  *entity.User
	Token string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil && p.User != nil
}
