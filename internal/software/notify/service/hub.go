package service

import (
	"context"
	"sync"

	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/observability"

	"github.com/gorilla/websocket"
)

// Hub stores all active notification WebSocket connections keyed by user ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*websocket.Conn
	logger  *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		logger:  logger,
	}
}

// Add registers a new connection under a user ID, displacing any previous one.
func (hub *Hub) Add(ctx context.Context, userID string, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if old, ok := hub.clients[userID]; ok {
		_ = old.Close()
	} else {
		observability.WSClientsOnline.Inc()
	}
	hub.clients[userID] = conn
	hub.logger.Info(ctx, "ws_registered", "WebSocket client connected", map[string]any{"user_id": userID})
}

// Remove deletes and closes a connection.
func (hub *Hub) Remove(ctx context.Context, userID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if conn, ok := hub.clients[userID]; ok {
		_ = conn.Close()
		delete(hub.clients, userID)
		observability.WSClientsOnline.Dec()
		hub.logger.Info(ctx, "ws_removed", "WebSocket client disconnected", map[string]any{"user_id": userID})
	}
}

// Send transmits a JSON message to a connected user. Users who are not
// connected are skipped silently; in-app delivery is best-effort.
func (hub *Hub) Send(userID string, msg any) error {
	hub.mu.RLock()
	conn, ok := hub.clients[userID]
	hub.mu.RUnlock()
	if !ok {
		return nil // user not connected
	}
	return conn.WriteJSON(msg)
}

// ListConnected returns all connected IDs (for debugging/admin tools).
func (hub *Hub) ListConnected() []string {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	keys := make([]string, 0, len(hub.clients))
	for k := range hub.clients {
		keys = append(keys, k)
	}
	return keys
}
