package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "storefront/internal/db"
	httpctx "storefront/internal/http/ctx"
)

type fakeSessions map[string]*dbpkg.User

func (f fakeSessions) SessionUser(_ context.Context, token string) (*dbpkg.User, error) {
	if token == "broken" {
		return nil, errors.New("connection reset")
	}
	u, ok := f[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func newRequest(path, cookie string) *fasthttp.RequestCtx {
	var rc fasthttp.RequestCtx
	rc.Request.SetRequestURI(path)
	if cookie != "" {
		rc.Request.Header.SetCookie(SessionCookie, cookie)
	}
	return &rc
}

// location returns the path of the redirect target; fasthttp may send it
// as an absolute URI.
func location(rc *fasthttp.RequestCtx) string {
	var u fasthttp.URI
	if err := u.Parse(nil, rc.Response.Header.Peek("Location")); err != nil {
		return ""
	}
	return string(u.Path())
}

func TestLoadSession(t *testing.T) {
	sessions := fakeSessions{"good": {ID: 1, AuthID: "auth-1"}}
	tests := []struct {
		name       string
		cookie     string
		wantUser   bool
		wantStatus int
		wantNext   bool
	}{
		{name: "no cookie", wantStatus: fasthttp.StatusOK, wantNext: true},
		{name: "live session", cookie: "good", wantUser: true, wantStatus: fasthttp.StatusOK, wantNext: true},
		{name: "unknown session", cookie: "expired", wantStatus: fasthttp.StatusOK, wantNext: true},
		{name: "storage error", cookie: "broken", wantStatus: fasthttp.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newRequest("/", tt.cookie)
			called := false
			LoadSession(sessions)(func(ctx *fasthttp.RequestCtx) { called = true })(rc)

			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
			if rc.Response.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", rc.Response.StatusCode(), tt.wantStatus)
			}
			if _, ok := httpctx.UserFromCtx(rc); ok != tt.wantUser {
				t.Errorf("user set = %v, want %v", ok, tt.wantUser)
			}
			if tok, ok := httpctx.SessionTokenFromCtx(rc); tt.wantUser && (!ok || tok != tt.cookie) {
				t.Errorf("session token = %q, %v", tok, ok)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	noop := func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

	page := newRequest("/cart", "")
	RequireUser(noop)(page)
	if page.Response.StatusCode() != fasthttp.StatusSeeOther {
		t.Errorf("page status = %d, want 303", page.Response.StatusCode())
	}
	if loc := location(page); loc != "/auth" {
		t.Errorf("Location path = %q, want /auth", loc)
	}

	api := newRequest("/api/recommendations", "")
	RequireUser(noop)(api)
	if api.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Errorf("api status = %d, want 401", api.Response.StatusCode())
	}

	signedIn := newRequest("/cart", "")
	httpctx.SetUser(signedIn, &dbpkg.User{ID: 1, AuthID: "auth-1"})
	RequireUser(noop)(signedIn)
	if signedIn.Response.StatusCode() != fasthttp.StatusOK {
		t.Errorf("signed-in status = %d, want 200", signedIn.Response.StatusCode())
	}
}

func TestRedirectSignedIn(t *testing.T) {
	rc := newRequest("/auth", "")
	httpctx.SetUser(rc, &dbpkg.User{ID: 1, AuthID: "auth-1"})
	called := false
	RedirectSignedIn(func(*fasthttp.RequestCtx) { called = true })(rc)

	if called {
		t.Error("auth page served to signed-in user")
	}
	if loc := location(rc); loc != "/" {
		t.Errorf("Location path = %q, want /", loc)
	}
}
