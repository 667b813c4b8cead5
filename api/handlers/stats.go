package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stride-hr/presence-gateway/internal/auth"
	"github.com/stride-hr/presence-gateway/internal/gateway"
	"github.com/stride-hr/presence-gateway/internal/model"
)

// StatsHandler serves aggregate connection statistics over plain HTTP for
// dashboards, with the same admin-role check as the in-band stats query.
type StatsHandler struct {
	gateway *gateway.Gateway
	tokens  *auth.TokenService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(gw *gateway.Gateway, tokens *auth.TokenService) *StatsHandler {
	return &StatsHandler{
		gateway: gw,
		tokens:  tokens,
	}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(c *gin.Context) {
	identity, err := extractIdentity(c, h.tokens)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}

	stats, err := h.gateway.Stats(identity)
	if err != nil {
		if errors.Is(err, model.ErrAccessDenied) {
			sendError(c, http.StatusForbidden, "FORBIDDEN", "not allowed to query connection stats")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the stats handler routes on a Gin router group.
func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Get)
}
