package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/valyala/fasthttp"

	"storefront/internal/config"
	dbpkg "storefront/internal/db"
	httpctx "storefront/internal/http/ctx"
	"storefront/internal/logging"
	"storefront/internal/recs"
	ui "storefront/web"
)

// Shop bundles what the storefront handlers share.
type Shop struct {
	Store    *dbpkg.Store
	Sessions *recs.Registry
	Recs     *recs.Assembler
	Cfg      *config.Config
}

// session returns the recommendation session of the signed-in request.
func (s *Shop) session(ctx *fasthttp.RequestCtx) (*recs.Session, bool) {
	token, ok := httpctx.SessionTokenFromCtx(ctx)
	if !ok {
		return nil, false
	}
	return s.Sessions.Get(token), true
}

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return user, true
}

// Card is a product tile as rendered by the templates.
type Card struct {
	ID         string
	Price      float64
	Image      string
	Available  bool
	CategoryID string
}

func cardFromItem(it dbpkg.Item) Card {
	return Card{
		ID:         strconv.FormatInt(it.ID, 10),
		Price:      it.Price,
		Image:      it.ImageRef(),
		Available:  it.Available,
		CategoryID: strconv.FormatInt(it.Category, 10),
	}
}

func cardFromRec(r recs.Recommendation) Card {
	return Card{
		ID:         r.ID,
		Price:      r.Price,
		Image:      r.Image,
		Available:  r.Available,
		CategoryID: r.CategoryID,
	}
}

func cards(items []dbpkg.Item) []Card {
	out := make([]Card, 0, len(items))
	for _, it := range items {
		out = append(out, cardFromItem(it))
	}
	return out
}

type CategoryCards struct {
	Category int64
	Cards    []Card
}

// PageData is the template data of every HTML page.
type PageData struct {
	Title           string
	Page            string
	Username        string
	PublicScorerURL string
	Error           string

	Recs       []Card
	Categories []CategoryCards
	Product    *Card
	Cards      []Card

	SearchID string
	Category string
	NotFound bool

	Cart   []CartRow
	Totals CartTotals
}

func newPageData(ctx *fasthttp.RequestCtx, cfg *config.Config, page, title string) PageData {
	data := PageData{
		Title:           title,
		Page:            page,
		PublicScorerURL: cfg.ScorerEndpoint(false),
	}
	if u, ok := httpctx.UserFromCtx(ctx); ok {
		data.Username = u.Username
	}
	return data
}

func renderLayout(ctx *fasthttp.RequestCtx, data PageData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Error().Err(err).Str("page", data.Page).Msg("render error")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

func jsonResponse(ctx *fasthttp.RequestCtx, data map[string]any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

// pathID parses a positive integer route parameter.
func pathID(ctx *fasthttp.RequestCtx, name string) (int64, bool) {
	s, _ := ctx.UserValue(name).(string)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// intArg reads an integer from args, returning def when absent and false
// when present but malformed.
func intArg(args *fasthttp.Args, name string, def int) (int, bool) {
	v := args.Peek(name)
	if len(v) == 0 {
		return def, true
	}
	n, err := strconv.Atoi(string(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
