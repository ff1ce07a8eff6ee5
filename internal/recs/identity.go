package recs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrResolve wraps storage failures hit while resolving an identity.
var ErrResolve = errors.New("recs: identity resolution failed")

// Principals reports the authenticated principal of the active session.
type Principals interface {
	Principal(ctx context.Context) (authID string, ok bool)
}

// PrincipalFunc adapts a function to Principals.
type PrincipalFunc func(ctx context.Context) (string, bool)

func (f PrincipalFunc) Principal(ctx context.Context) (string, bool) { return f(ctx) }

// ProfileStore maps an auth principal to the internal numeric user id.
type ProfileStore interface {
	ProfileIDByAuthID(ctx context.Context, authID string) (id int64, found bool, err error)
}

// Resolver memoizes the internal user id of one session. Once resolved the
// id is kept for the life of the Resolver; "not signed in" and "no profile"
// are never memoized, so later calls retry.
type Resolver struct {
	principals Principals
	profiles   ProfileStore

	mu       sync.Mutex
	id       int64
	resolved bool
}

func NewResolver(principals Principals, profiles ProfileStore) *Resolver {
	return &Resolver{principals: principals, profiles: profiles}
}

// Resolve returns the internal user id. ok is false when there is no
// principal or the principal has no profile.
func (r *Resolver) Resolve(ctx context.Context) (int64, bool, error) {
	r.mu.Lock()
	if r.resolved {
		id := r.id
		r.mu.Unlock()
		return id, true, nil
	}
	r.mu.Unlock()

	authID, ok := r.principals.Principal(ctx)
	if !ok || authID == "" {
		return 0, false, nil
	}

	id, found, err := r.profiles.ProfileIDByAuthID(ctx, authID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	if !found {
		return 0, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		r.id = id
		r.resolved = true
	}
	return r.id, true, nil
}

// Resolved returns the memoized id without any I/O.
func (r *Resolver) Resolved() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id, r.resolved
}
