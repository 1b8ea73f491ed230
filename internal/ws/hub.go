package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maps user identity to the live WebSocket connection held by this
// process. It is ephemeral by design: lost on restart, rebuilt as users
// reconnect, and never coordinated across processes — the durable queue is
// the only shared state that matters.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register associates a connection with a user, replacing any prior
// association. The replaced client's send channel is closed so its write
// pump tears the old transport down; a reconnect must never be refused
// because a stale handle lingers.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	old := h.clients[client.userID]
	h.clients[client.userID] = client
	h.mu.Unlock()

	if old != nil {
		log.Printf("[WS] User %s reconnecting - replacing old connection", client.userID)
		old.shutdown()
	}
}

// Unregister removes the association only if client is still the registered
// instance for that user. A late unregister from a replaced connection must
// not evict the newer one. Reports whether the client was removed.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		delete(h.clients, client.userID)
		return true
	}
	return false
}

// Push delivers an event to the user's registered connection. Best-effort:
// a missing client or a full buffer drops the event with a log line, and the
// reconciliation loop remains the durable fallback.
func (h *Hub) Push(userID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WS] Error marshaling event for user %s: %v", userID, err)
		return
	}

	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		log.Printf("[WS] Push dropped for user %s (no connection here)", userID)
		return
	}

	if !client.trySend(data) {
		log.Printf("[WS] Push dropped for user %s (connection closing or buffer full)", userID)
	}
}
