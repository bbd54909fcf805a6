package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"msgdeck/internal/shared/logger"
)

const healthProbeTimeout = 2 * time.Second

// dbPinger is satisfied by *sql.DB.
type dbPinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      dbPinger
	version string
	logger  logger.Interface
}

func NewHealthHandler(db dbPinger, version string, logger logger.Interface) *HealthHandler {
	return &HealthHandler{db: db, version: version, logger: logger}
}

// HealthCheck handles GET /health. The process is live as long as it answers;
// the database field reports whether the pool is reachable.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":   "healthy",
		"service":  "msgdeck",
		"version":  h.version,
		"database": "up",
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warnw("health check database ping failed", "error", err)
			body["status"] = "degraded"
			body["database"] = "down"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, body)
}
