package history

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"proposal-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the history service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/history", h.save)
	rg.GET("/history", h.list)
	rg.GET("/history/:id", h.get)
	rg.DELETE("/history", h.clear)
}

type saveRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

func (h *Handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	item, err := h.Svc.Save(c.Request.Context(), req.SessionID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to save history", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, item)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to list history", nil)
		return
	}
	respond.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.Svc.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to load history item", nil)
		return
	}
	if item == nil {
		respond.Error(c, http.StatusNotFound, ErrorCodeValidation, "history item not found", nil)
		return
	}
	respond.OK(c, item)
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.Svc.Clear(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to clear history", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
