package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/devserver"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/tracing"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers serves the resolution contract from a devserver backend
type Handlers struct {
	backend *devserver.Backend
	log     *zap.Logger
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(backend *devserver.Backend, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{backend: backend, log: log.Named("http"), started: time.Now()}
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "onboard sandbox",
		"version": Version,
	})
}

// Health reports backend contents and uptime
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"backend": h.backend.Stats(),
	})
}

// Resolve answers POST /v1/placements/:name/resolve
func (h *Handlers) Resolve(c *gin.Context) {
	var req placement.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	req.Placement = c.Param("name")
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	body, err := h.backend.Resolve(req)
	if errors.Is(err, devserver.ErrUnknownPlacement) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("resolve failed", append(tracing.Fields(c.Request.Context()),
			zap.String("placement", req.Placement), zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	h.log.Debug("placement resolved", append(tracing.Fields(c.Request.Context()),
		zap.String("placement", req.Placement),
		zap.Any("flow_id", body["flowId"]))...)
	c.JSON(http.StatusOK, body)
}

// Completions answers POST /v1/completions
func (h *Handlers) Completions(c *gin.Context) {
	var rec placement.Completion
	if err := c.ShouldBindJSON(&rec); err != nil {
		badRequest(c, err)
		return
	}
	if err := rec.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	h.backend.RecordCompletion(rec)
	h.log.Debug("completion accepted", append(tracing.Fields(c.Request.Context()),
		zap.String("placement", rec.Placement),
		zap.String("flow_id", rec.FlowID))...)
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

type eventRequest struct {
	placement.Event
	Platform   string `json:"platform"`
	SDKVersion string `json:"sdkVersion"`
	AppVersion string `json:"appVersion"`
}

// Events answers POST /v1/events
func (h *Handlers) Events(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Type == "" {
		badRequest(c, errors.New("eventType is required"))
		return
	}
	h.backend.TrackEvent(req.Event)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
