package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/mallid/internal/api/handlers"
	"github.com/your-org/mallid/internal/api/ws"
	"github.com/your-org/mallid/internal/auth"
	"github.com/your-org/mallid/internal/queue"
	"github.com/your-org/mallid/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	Pool     *storage.Pool
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Pool, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket: live run progress/completion
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Runs
	runH := handlers.NewRunHandler(cfg.Producer)
	v1.POST("/runs", runH.Trigger)
	v1.GET("/runs/queue-depth", runH.QueueDepth)

	// Associations (audit trail)
	assocH := handlers.NewAssociationHandler(storage.NewAssociationRepo(cfg.Pool))
	v1.GET("/associations", assocH.List)

	// Journeys
	journeyH := handlers.NewJourneyHandler(storage.NewJourneyRepo(cfg.Pool))
	v1.GET("/journeys", journeyH.List)

	return r
}
