package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/taskpin/taskpin-be/internal/api/auth"
	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/hub"
)

// WSHandler upgrades authenticated clients into the notification room.
type WSHandler struct {
	logger   *slog.Logger
	hub      *hub.Hub
	workers  auth.WorkerAuthenticator
	agents   auth.AgentAuthenticator
	upgrader websocket.Upgrader
}

// NewWSHandler creates the WebSocket entry point.
func NewWSHandler(logger *slog.Logger, h *hub.Hub, workers auth.WorkerAuthenticator, agents auth.AgentAuthenticator) *WSHandler {
	return &WSHandler{
		logger:  logger,
		hub:     h,
		workers: workers,
		agents:  agents,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// identify resolves the caller from the Authorization header, or from
// the token/api_key query parameters for clients that cannot set
// headers on the upgrade request.
func (h *WSHandler) identify(c *gin.Context) (userID, role string, err error) {
	header := c.GetHeader("Authorization")

	switch {
	case strings.HasPrefix(header, "Bearer "):
		identity, err := h.workers.AuthenticateWorker(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return "", "", err
		}
		return identity.ID, string(domain.RoleWorker), nil
	case strings.HasPrefix(header, "Agent "):
		identity, err := h.agents.AuthenticateAgent(c.Request.Context(), strings.TrimPrefix(header, "Agent "))
		if err != nil {
			return "", "", err
		}
		return identity.ID, string(domain.RoleAgent), nil
	}

	if token := c.Query("token"); token != "" {
		identity, err := h.workers.AuthenticateWorker(c.Request.Context(), token)
		if err != nil {
			return "", "", err
		}
		return identity.ID, string(domain.RoleWorker), nil
	}
	if key := c.Query("api_key"); key != "" {
		identity, err := h.agents.AuthenticateAgent(c.Request.Context(), key)
		if err != nil {
			return "", "", err
		}
		return identity.ID, string(domain.RoleAgent), nil
	}

	return "", "", domain.E(domain.KindUnauthenticated, "credentials are required")
}

// Connect handles GET /api/v1/ws
func (h *WSHandler) Connect(c *gin.Context) {
	userID, role, err := h.identify(c)
	if err != nil {
		status := http.StatusUnauthorized
		if !domain.IsKind(err, domain.KindUnauthenticated) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    string(domain.KindUnauthenticated),
				"message": "valid credentials are required",
			},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return
	}

	session := h.hub.Register(conn, userID, role)
	h.hub.ReadLoop(session)
}
