package main

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/http/handlers"
	httpctx "storefront/internal/http/ctx"
	appmw "storefront/internal/http/middleware"
	"storefront/internal/logging"
	"storefront/internal/recs"
	ui "storefront/web"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect database")
	}
	store := db.NewStore(sqlDB)

	db.StartRetentionWorker(sqlDB, cfg.RetentionDays)
	db.StartAggregationWorker(sqlDB)

	recs.RegisterMetrics(prometheus.DefaultRegisterer)
	appmw.RegisterMetrics(prometheus.DefaultRegisterer)

	principals := recs.PrincipalFunc(httpctx.PrincipalFromContext)
	sessions := recs.NewRegistry(cfg.Recs, principals, store, store)
	sessions.StartSweeper(10 * time.Minute)

	scorer := recs.NewHTTPScorer(cfg.ScorerEndpoint(true), cfg.Recs.ScorerTimeout, nil)
	if !scorer.Configured() {
		logging.Warn().Msg("APP_RECS_API_URL is not set; recommendations are disabled")
	}

	shop := &handlers.Shop{
		Store:    store,
		Sessions: sessions,
		Recs:     recs.NewAssembler(cfg.Recs, scorer, store),
		Cfg:      cfg,
	}

	r := router.New()
	r.SaveMatchedRoutePath = true

	// Global middleware chain: request logger, metrics, session loading, then router
	handler := handlers.RequestLogger(appmw.RequestMetrics(appmw.LoadSession(store)(r.Handler)))

	r.GET("/healthz", handlers.Healthz)
	r.GET("/metrics", handlers.Metrics(prometheus.DefaultGatherer))
	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/auth", appmw.RedirectSignedIn(handlers.AuthPage(shop)))
	r.POST("/auth/login", appmw.RedirectSignedIn(handlers.LoginSubmit(shop)))
	r.POST("/auth/signup", appmw.RedirectSignedIn(handlers.SignupSubmit(shop)))
	r.POST("/auth/logout", handlers.Logout(shop))
	r.POST("/auth/delete", appmw.RequireUser(handlers.DeleteAccount(shop)))

	r.GET("/", appmw.RequireUser(handlers.Home(shop)))
	r.GET("/product/{id}", appmw.RequireUser(handlers.ProductPage(shop)))
	r.GET("/search", appmw.RequireUser(handlers.Search(shop)))

	r.GET("/cart", appmw.RequireUser(handlers.CartPage(shop)))
	r.POST("/cart/add", appmw.RequireUser(handlers.CartAdd(shop)))
	r.POST("/cart/change", appmw.RequireUser(handlers.CartChange(shop)))
	r.POST("/cart/checkout", appmw.RequireUser(handlers.Checkout(shop)))

	r.GET("/api/recommendations", appmw.RequireUser(handlers.Recommendations(shop)))
	r.POST("/api/events", appmw.RequireUser(handlers.RecordEvent(shop)))
	r.GET("/api/trending", appmw.RequireUser(handlers.Trending(shop)))

	logging.Info().Str("addr", cfg.ListenAddr).Msg("storefront listening")
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
}
