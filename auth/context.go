package auth

import (
	"context"

	"conduit/domain"
)

const (
	userKey  privateKey = "user"
	tokenKey privateKey = "token"
)

type privateKey string

// SetUser attaches the resolved user to the request context.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the user attached to the context, or nil for an
// anonymous request.
func GetUser(ctx context.Context) *domain.User {
	if temp := ctx.Value(userKey); temp != nil {
		if user, ok := temp.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// SetToken retains the raw bearer token on the context. It is reused as
// a cache key component and echoed back in user envelopes.
func SetToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// GetToken returns the raw bearer token attached to the context, or ""
// for an anonymous request.
func GetToken(ctx context.Context) string {
	if temp := ctx.Value(tokenKey); temp != nil {
		if token, ok := temp.(string); ok {
			return token
		}
	}
	return ""
}
