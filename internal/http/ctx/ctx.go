package ctx

import (
	"context"

	"github.com/valyala/fasthttp"

	dbpkg "storefront/internal/db"
)

const (
	UserKey         = "user"
	SessionTokenKey = "sessionToken"
)

type principalKey struct{}

func SetSessionToken(ctx *fasthttp.RequestCtx, token string) {
	ctx.SetUserValue(SessionTokenKey, token)
}

func SessionTokenFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(SessionTokenKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*dbpkg.User)
	return u, ok && u != nil
}

// PrincipalFromContext returns the AuthID of the signed-in user. It accepts
// a *fasthttp.RequestCtx or a context made by Detached.
func PrincipalFromContext(c context.Context) (string, bool) {
	if rc, ok := c.(*fasthttp.RequestCtx); ok {
		u, ok := UserFromCtx(rc)
		if !ok {
			return "", false
		}
		return u.AuthID, u.AuthID != ""
	}
	s, ok := c.Value(principalKey{}).(string)
	return s, ok && s != ""
}

// Detached copies the request's principal into a context that stays valid
// after the handler returns. fasthttp reuses the RequestCtx, so goroutines
// outliving the request must use this instead.
func Detached(rc *fasthttp.RequestCtx) context.Context {
	c := context.Background()
	if authID, ok := PrincipalFromContext(rc); ok {
		c = context.WithValue(c, principalKey{}, authID)
	}
	return c
}
