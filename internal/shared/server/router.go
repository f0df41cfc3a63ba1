package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proposal-backend/internal/documents"
	"proposal-backend/internal/history"
	"proposal-backend/internal/session"
	"proposal-backend/internal/shared/config"
	"proposal-backend/internal/shared/metrics"
	"proposal-backend/internal/shared/server/middleware"
	"proposal-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	SessionHandler   *session.Handler
	DocumentsHandler *documents.Handler
	HistoryHandler   *history.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimits()),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.SessionHandler.RegisterRoutes(api)
	deps.DocumentsHandler.RegisterRoutes(api)
	deps.HistoryHandler.RegisterRoutes(api)

	r.GET("/metrics", metrics.Handler())

	return r
}

// Session polling and upload get their own budgets; everything else shares
// the default bucket.
func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			switch {
			case c.Request.Method == http.MethodGet &&
				(c.FullPath() == "/api/v1/sessions/:id" || c.FullPath() == "/api/v1/sessions/:id/results" ||
					c.FullPath() == "/api/v1/announcements"):
				return "POLLING"
			case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/sessions/:id/documents":
				return "UPLOAD"
			default:
				return "DEFAULT"
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 10, Burst: 40},
			"POLLING": {Rate: 25, Burst: 100},
			"UPLOAD":  {Rate: 3, Burst: 15},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
