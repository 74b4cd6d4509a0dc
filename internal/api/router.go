package api

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/memoryd/internal/api/handlers"
	"github.com/your-org/memoryd/internal/auth"
	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/materialize"
	"github.com/your-org/memoryd/internal/reasoner"
	"github.com/your-org/memoryd/internal/store"
)

// RouterConfig wires the read-only query surface: everything it serves is
// already-persisted data, so it needs no ingestion-side dependencies.
type RouterConfig struct {
	APIKey   string
	Store    *store.Store
	Gateway  *reasoner.Gateway
	Aliases  config.RetrieveConfig
	Snapshot config.SnapshotConfig
	Video    config.VideoConfig
	Log      *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Default())

	systemH := handlers.NewSystemHandler(cfg.Store)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Static("/snapshots", cfg.Snapshot.Dir)

	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	mat := materialize.New(cfg.Video, cfg.Snapshot)
	queryH := handlers.NewQueryHandler(cfg.Store, cfg.Gateway, mat, cfg.Snapshot, cfg.Log).WithAliases(cfg.Aliases)
	v1.GET("/events", queryH.ListEvents)
	v1.GET("/summary/:date", queryH.DailySummary)
	v1.POST("/ask", queryH.Ask)

	return r
}
