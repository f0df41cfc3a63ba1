package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"proposal-backend/internal/progress"
	"proposal-backend/internal/shared/server/respond"
	"proposal-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the session service.
type Handler struct {
	Svc *Service
	Hub *progress.Hub
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, hub *progress.Hub) *Handler {
	return &Handler{Svc: svc, Hub: hub}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.GET("/sessions/:id", h.get)
	rg.POST("/sessions/:id/analyze", h.analyze)
	rg.POST("/sessions/:id/cancel", h.cancel)
	rg.POST("/sessions/:id/reset", h.reset)
	rg.GET("/sessions/:id/results", h.results)
	rg.GET("/sessions/:id/progress", progress.WSHandler(h.Hub))
	rg.GET("/announcements", h.announcements)
}

type createRequest struct {
	AnalysisModel   string `json:"analysisModel"`
	ComparisonModel string `json:"comparisonModel"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
			return
		}
	}

	sess, err := h.Svc.Create(c.Request.Context(), SelectedModels{
		Analysis:   req.AnalysisModel,
		Comparison: req.ComparisonModel,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to create session", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(sess))
}

func (h *Handler) get(c *gin.Context) {
	sess, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch session")
		return
	}
	respond.OK(c, toResponse(sess))
}

func (h *Handler) analyze(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Svc.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to fetch session")
		return
	}

	// The run outlives the request; state is polled via GET or streamed over
	// the progress websocket.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := h.Svc.StartAnalysis(ctx, id); err != nil {
			telemetry.Error("analysis.run", map[string]any{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}()

	respond.JSON(c, http.StatusAccepted, gin.H{"sessionId": id, "status": "started"})
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.Svc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "failed to cancel analysis")
		return
	}
	respond.OK(c, gin.H{"status": "canceled"})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Svc.Reset(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "failed to reset session")
		return
	}
	respond.OK(c, gin.H{"status": "reset"})
}

func (h *Handler) results(c *gin.Context) {
	res, err := h.Svc.GetResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch results")
		return
	}
	respond.OK(c, gin.H{
		"results":          res.Results,
		"comparisonResult": res.Comparison,
	})
}

// announcements serves the live-region messages for polling frontends.
func (h *Handler) announcements(c *gin.Context) {
	items := []progress.Announcement{}
	if h.Svc.Announcer != nil {
		items = h.Svc.Announcer.Announcements()
	}
	respond.OK(c, gin.H{"announcements": items})
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeValidation, "session not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrAlreadyRunning):
		respond.Error(c, http.StatusConflict, ErrorCodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
	}
}
