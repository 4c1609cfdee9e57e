package service

import (
	"net/http"
	"strings"

	"campus-carpool/internal/domain/user"
	"campus-carpool/internal/general/jwt"
	"campus-carpool/internal/general/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler upgrades notification clients and parks them in the hub until
// they disconnect.
type WSHandler struct {
	logger *logger.Logger
	jwtMgr *jwt.Manager
	hub    *Hub
}

func NewWSHandler(logger *logger.Logger, jwtMgr *jwt.Manager, hub *Hub) *WSHandler {
	return &WSHandler{logger: logger, jwtMgr: jwtMgr, hub: hub}
}

// RegisterRoutes mounts the WebSocket endpoint on the provided mux.
func (handler *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/notifications", handler.Connect)
	mux.HandleFunc("GET /notify/health", handler.handleHealth)
}

func (handler *WSHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Connect authenticates the caller (header or query token), upgrades to
// WebSocket, and keeps the connection registered until the client goes away.
func (handler *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := jwt.FromAuthorization(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	claims, err := handler.jwtMgr.ParseAndValidate(raw)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err := jwt.RoleAllowed(claims, user.AllRoles...); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		http.Error(w, "token has no subject", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error(ctx, "ws_upgrade_failed", "Failed to upgrade connection", err, map[string]any{"user_id": userID})
		return
	}

	handler.hub.Add(ctx, userID, conn)

	// drain control frames until the peer closes; writes go through the hub
	go func() {
		defer handler.hub.Remove(ctx, userID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
