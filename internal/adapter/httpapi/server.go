// Package httpapi exposes the cron host over HTTP using gin.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cronhelper/internal/host"
	"cronhelper/internal/recurrence"
	"cronhelper/internal/shared"
)

// Cron is the host surface served over HTTP.
type Cron interface {
	Schedules() recurrence.Schedules
	Events(ctx context.Context) ([]host.Event, error)
	Tick(ctx context.Context) error
	Unschedule(ctx context.Context, hook, key string) error
}

// HealthFunc reports whether a backing dependency is reachable.
type HealthFunc func(ctx context.Context) error

// EventResponse is the JSON form of a pending occurrence.
type EventResponse struct {
	ID       string          `json:"id"`
	Hook     string          `json:"hook"`
	Key      string          `json:"key"`
	Args     json.RawMessage `json:"args"`
	NextRun  time.Time       `json:"next_run"`
	Schedule string          `json:"schedule"`
	Interval int64           `json:"interval"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type handler struct {
	cron   Cron
	health HealthFunc
	logger *slog.Logger
}

// NewRouter builds the gin engine. health may be nil.
func NewRouter(c Cron, health HealthFunc, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{cron: c, health: health, logger: logger.With("component", "http")}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)

	r.GET("/healthz", h.healthz)
	g := r.Group("/cron")
	g.GET("/schedules", h.schedules)
	g.GET("/events", h.events)
	g.POST("/run", h.run)
	g.DELETE("/events/:hook", h.unschedule)
	return r
}

func (h *handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: shared.KindOf(err).String()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) schedules(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.Schedules())
}

func (h *handler) events(c *gin.Context) {
	events, err := h.cron.Events(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			ID:       ev.ID,
			Hook:     ev.Hook,
			Key:      ev.Key,
			Args:     ev.Args,
			NextRun:  ev.Timestamp,
			Schedule: ev.Schedule,
			Interval: ev.Interval,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) run(c *gin.Context) {
	if err := h.cron.Tick(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) unschedule(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		h.fail(c, shared.Validationf("query parameter key is required"))
		return
	}
	if err := h.cron.Unschedule(c.Request.Context(), c.Param("hook"), key); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) fail(c *gin.Context, err error) {
	kind := shared.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

func statusFor(k shared.Kind) int {
	switch k {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindTimeout:
		return http.StatusGatewayTimeout
	case shared.KindDependencyFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}
