package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports process health.
type SystemHandler struct {
	db        *sql.DB
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. rdb may be nil.
func NewSystemHandler(db *sql.DB, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Database   string `json:"database"`
	Cache      string `json:"cache"`
	Goroutines int    `json:"goroutines"`
	GoVersion  string `json:"go_version"`
}

// Health godoc
// GET /health
// Responds 503 when the store is unreachable. A missing cache only degrades.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	st := healthStatus{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Database:   "ok",
		Cache:      "disabled",
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error().Err(err).Msg("Database ping failed")
		st.Status = "unavailable"
		st.Database = "down"
	}
	if h.rdb != nil {
		st.Cache = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			st.Cache = "down"
		}
	}

	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.OK(c, code, st)
}
