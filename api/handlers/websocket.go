// Package handlers provides HTTP API request handlers.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stride-hr/presence-gateway/internal/auth"
	"github.com/stride-hr/presence-gateway/internal/gateway"
	"github.com/stride-hr/presence-gateway/internal/model"
)

// ErrorResponse is the JSON body for failed HTTP requests.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WebSocketHandler upgrades employee clients onto the presence gateway.
type WebSocketHandler struct {
	gateway *gateway.Gateway
	tokens  *auth.TokenService
}

// NewWebSocketHandler creates a new WebSocketHandler. The token service may
// be disabled, in which case identity is read from query parameters
// (development mode).
func NewWebSocketHandler(gw *gateway.Gateway, tokens *auth.TokenService) *WebSocketHandler {
	return &WebSocketHandler{
		gateway: gw,
		tokens:  tokens,
	}
}

// Connect handles GET /api/connect - upgrades to WebSocket and registers
// the connection with the gateway.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	identity, err := h.extractIdentity(c)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}

	if err := identity.Validate(); err != nil {
		sendError(c, http.StatusUnauthorized, "REJECTED_CONNECTION", err.Error())
		return
	}

	// Errors past this point are handled inside the gateway.
	h.gateway.HandleConnection(c.Writer, c.Request, identity)
}

// extractIdentity resolves the connecting principal's claims: from a bearer
// token when token auth is configured, otherwise from query parameters.
func (h *WebSocketHandler) extractIdentity(c *gin.Context) (model.Identity, error) {
	return extractIdentity(c, h.tokens)
}

func extractIdentity(c *gin.Context, tokens *auth.TokenService) (model.Identity, error) {
	if tokens.Enabled() {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			// Browsers cannot set headers on WebSocket upgrades, so the
			// token may also arrive as a query parameter.
			token = c.Query("token")
		}
		return tokens.Validate(token)
	}

	identity := model.Identity{
		UserID:         c.Query("userId"),
		EmployeeID:     c.Query("employeeId"),
		BranchID:       c.Query("branchId"),
		OrganizationID: c.Query("organizationId"),
	}
	if roles := c.Query("roles"); roles != "" {
		identity.Roles = strings.Split(roles, ",")
	}
	return identity, nil
}

// RegisterRoutes registers the WebSocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connect", h.Connect)
}
