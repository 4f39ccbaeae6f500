package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reservespace/backend/internal/security/auth"
	"github.com/reservespace/backend/internal/service"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// NotificationStreamHandler pushes a user's notifications over a WebSocket.
// Browsers cannot set an Authorization header on WebSocket requests, so the
// token travels in the "token" query parameter instead.
type NotificationStreamHandler struct {
	notificationService *service.NotificationService
	tokens              *auth.TokenManager
	logger              *slog.Logger
	allowedOrigins      []string
}

// NewNotificationStreamHandler creates a new notification stream handler
func NewNotificationStreamHandler(
	notificationService *service.NotificationService,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	allowedOrigins []string,
) *NotificationStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStreamHandler{
		notificationService: notificationService,
		tokens:              tokens,
		logger:              logger,
		allowedOrigins:      allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *NotificationStreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/notifications?token=...
func (h *NotificationStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(tokenString)
	if err != nil {
		h.logger.Debug("stream token rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	feed, cancel := h.notificationService.Subscribe(claims.UserID)
	defer cancel()

	h.logger.Info("notification stream opened", slog.Int64("user_id", claims.UserID))

	// Reader goroutine: we never expect client messages, but reading drains
	// control frames and detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			h.logger.Info("notification stream closed", slog.Int64("user_id", claims.UserID))
			return
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case n := <-feed:
			ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteJSON(toNotificationResponse(n)); err != nil {
				h.logger.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
