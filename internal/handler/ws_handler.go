package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/websocket"
	"github.com/yourusername/dealership-api/pkg/auth"
)

// LockLister returns the live locks for the initial snapshot.
type LockLister interface {
	List(ctx context.Context) ([]*entity.VehicleLock, error)
}

// WSHandler upgrades dashboard connections to the lock feed.
type WSHandler struct {
	hub        *websocket.Hub
	jwtService *auth.JWTService
	locks      LockLister
	upgrader   gorillaws.Upgrader
	logger     *zap.Logger
}

// NewWSHandler creates the handler. Browser connections are accepted only
// from allowedOrigins; clients without an Origin header are accepted.
func NewWSHandler(hub *websocket.Hub, jwtService *auth.JWTService, locks LockLister, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	h := &WSHandler{
		hub:        hub,
		jwtService: jwtService,
		locks:      locks,
		logger:     namedLogger(logger, "ws_handler"),
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			h.logger.Warn("websocket origin rejected", zap.String("origin", origin))
			return false
		},
	}
	return h
}

// HandleLocks handles GET /ws/locks?token=<access token>.
func (h *WSHandler) HandleLocks(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token parameter", "error_type": "token_missing"})
		return
	}
	claims, err := h.jwtService.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.UserID)
	h.logger.Debug("websocket connected", zap.Uint("user_id", claims.UserID), zap.String("conn_id", client.ConnectionID))
	client.Serve(c.Request.Context(), func(ctx context.Context) (*websocket.Event, error) {
		locks, err := h.locks.List(ctx)
		if err != nil {
			return nil, err
		}
		return &websocket.Event{Type: websocket.LOCKS_SNAPSHOT, Data: locks}, nil
	})
}
