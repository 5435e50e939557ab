package auth

import (
	"context"
	"time"

	"conduit/cache"
	"conduit/domain"
	"conduit/errs"
)

// tokenCacheTTL bounds how long a resolved token is trusted without
// re-verifying and re-loading the user.
const tokenCacheTTL = time.Hour

// UserFinder is the slice of the user service the resolver needs.
type UserFinder interface {
	ByID(ctx context.Context, id int) (*domain.User, error)
}

// Resolver turns bearer tokens into users. Resolution is cached per
// token value so repeated requests with the same token skip both the
// signature check and the store lookup.
type Resolver struct {
	users  UserFinder
	cache  cache.Cache
	secret string
	now    func() time.Time
}

// NewResolver returns a Resolver verifying tokens against secret.
func NewResolver(users UserFinder, c cache.Cache, secret string) *Resolver {
	return &Resolver{
		users:  users,
		cache:  c,
		secret: secret,
		now:    time.Now,
	}
}

// Issue signs a fresh token for the user.
func (r *Resolver) Issue(user *domain.User) (string, error) {
	return IssueToken(user, r.secret, r.now)
}

// Resolve validates a bearer token and loads the owning user. Any
// failure (malformed token, bad signature, expiry, vanished user) is an
// unauthorized error; the caller decides whether that is fatal for the
// request or just means "anonymous".
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "A token is required.")
	}

	key := cache.Key("users.token", token)
	var cached domain.UserRecord
	if ok, err := r.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached.User(), nil
	}

	claims, err := VerifyToken(token, r.secret)
	if err != nil {
		return nil, err
	}
	user, err := r.users.ByID(ctx, claims.ID)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid or expired token.")
		}
		return nil, err
	}

	// Best effort: a failed cache write only costs the next request a
	// re-verification. Stored as a record so the id survives the round
	// trip despite the API-facing json tags on User.
	r.cache.Set(ctx, key, user.Record(), tokenCacheTTL)

	return user, nil
}
