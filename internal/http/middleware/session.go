package middleware

import (
	"bytes"
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "storefront/internal/db"
	httpctx "storefront/internal/http/ctx"
	"storefront/internal/logging"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "session_id"

// SessionLookup resolves a session token to its user.
type SessionLookup interface {
	SessionUser(ctx context.Context, token string) (*dbpkg.User, error)
}

// LoadSession returns middleware that loads the session user, when the
// cookie names a live session, and sets it on the context. Requests
// without a valid session continue anonymously.
func LoadSession(sessions SessionLookup) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookie := ctx.Request.Header.Cookie(SessionCookie)
			if len(cookie) == 0 {
				next(ctx)
				return
			}
			token := string(cookie)

			user, err := sessions.SessionUser(ctx, token)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
			case err != nil:
				logging.Error().Err(err).Msg("session lookup failed")
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("database error")
				return
			default:
				httpctx.SetUser(ctx, user)
				httpctx.SetSessionToken(ctx, token)
			}
			next(ctx)
		}
	}
}

// RequireUser sends anonymous page requests to /auth. API requests get 401.
func RequireUser(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := httpctx.UserFromCtx(ctx); !ok {
			if bytes.HasPrefix(ctx.Path(), []byte("/api/")) {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("unauthorized")
				return
			}
			ctx.Redirect("/auth", fasthttp.StatusSeeOther)
			return
		}
		next(ctx)
	}
}

// RedirectSignedIn sends signed-in users away from the auth pages.
func RedirectSignedIn(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := httpctx.UserFromCtx(ctx); ok {
			ctx.Redirect("/", fasthttp.StatusSeeOther)
			return
		}
		next(ctx)
	}
}
