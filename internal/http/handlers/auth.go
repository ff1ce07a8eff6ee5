package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	httpctx "storefront/internal/http/ctx"
	"storefront/internal/http/middleware"
	"storefront/internal/logging"
)

var validate = validator.New()

type signupForm struct {
	Username string `validate:"required,min=3,max=64,alphanum"`
	Password string `validate:"required,min=8,max=72"`
}

func AuthPage(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		renderLayout(ctx, newPageData(ctx, shop.Cfg, "auth", "Sign in"))
	}
}

func renderAuthError(ctx *fasthttp.RequestCtx, shop *Shop, code int, errMsg string) {
	data := newPageData(ctx, shop.Cfg, "auth", "Sign in")
	data.Error = errMsg
	renderLayout(ctx, data)
	ctx.SetStatusCode(code)
}

func LoginSubmit(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := string(ctx.PostArgs().Peek("password"))

		user, err := shop.Store.UserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				renderAuthError(ctx, shop, fasthttp.StatusUnauthorized, "Invalid username or password.")
				return
			}
			logging.Error().Err(err).Msg("login: user lookup failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			renderAuthError(ctx, shop, fasthttp.StatusUnauthorized, "Invalid username or password.")
			return
		}

		startSession(ctx, shop, user.ID)
	}
}

func SignupSubmit(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		form := signupForm{
			Username: string(ctx.PostArgs().Peek("username")),
			Password: string(ctx.PostArgs().Peek("password")),
		}
		if err := validate.Struct(form); err != nil {
			renderAuthError(ctx, shop, fasthttp.StatusBadRequest,
				"Username must be 3-64 letters or digits and password at least 8 characters.")
			return
		}

		if _, err := shop.Store.UserByUsername(ctx, form.Username); err == nil {
			renderAuthError(ctx, shop, fasthttp.StatusConflict, "Username already taken.")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logging.Error().Err(err).Msg("signup: user lookup failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}
		user, err := shop.Store.CreateUser(ctx, form.Username, string(hash))
		if err != nil {
			logging.Error().Err(err).Msg("signup: create user failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create user")
			return
		}
		logging.Info().Int64("user_id", user.ID).Msg("user signed up")

		startSession(ctx, shop, user.ID)
	}
}

func startSession(ctx *fasthttp.RequestCtx, shop *Shop, userID int64) {
	ttl := time.Duration(shop.Cfg.SessionDays) * 24 * time.Hour
	sess, err := shop.Store.CreateSession(ctx, userID, ttl)
	if err != nil {
		logging.Error().Err(err).Msg("create session failed")
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create session")
		return
	}
	setSessionCookie(ctx, shop, sess.Token, sess.ExpiresAt)
	ctx.Redirect("/", fasthttp.StatusSeeOther)
}

func setSessionCookie(ctx *fasthttp.RequestCtx, shop *Shop, token string, expires time.Time) {
	var c fasthttp.Cookie
	c.SetKey(middleware.SessionCookie)
	c.SetValue(token)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(shop.Cfg.SecureCookies)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	if token == "" {
		c.SetMaxAge(-1)
	} else {
		c.SetExpire(expires)
	}
	ctx.Response.Header.SetCookie(&c)
}

// endSession forgets the request's session everywhere it is held.
func endSession(ctx *fasthttp.RequestCtx, shop *Shop) {
	if token, ok := httpctx.SessionTokenFromCtx(ctx); ok {
		if err := shop.Store.DeleteSession(ctx, token); err != nil {
			logging.Warn().Err(err).Msg("delete session failed")
		}
		shop.Sessions.Drop(token)
	}
	setSessionCookie(ctx, shop, "", time.Time{})
}

func Logout(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		endSession(ctx, shop)
		ctx.Redirect("/auth", fasthttp.StatusSeeOther)
	}
}

func DeleteAccount(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		if err := shop.Store.DeleteUser(ctx, user.ID); err != nil {
			logging.Error().Err(err).Int64("user_id", user.ID).Msg("delete user failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete account")
			return
		}
		if token, ok := httpctx.SessionTokenFromCtx(ctx); ok {
			shop.Sessions.Drop(token)
		}
		setSessionCookie(ctx, shop, "", time.Time{})
		logging.Info().Int64("user_id", user.ID).Msg("account deleted")
		ctx.Redirect("/auth", fasthttp.StatusSeeOther)
	}
}
