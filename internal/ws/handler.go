package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/studyplay/backend/internal/auth"
	"github.com/studyplay/backend/internal/config"
	"github.com/studyplay/backend/internal/matchmaking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type searchData struct {
	GameID string `json:"gameId"`
}

// Gateway is the real-time entry point for matchmaking: it authenticates
// inbound connections, dispatches search/cancel intents to the pairing
// engine, and forwards pairing results through the hub.
type Gateway struct {
	service    *matchmaking.Service
	reconciler *matchmaking.Reconciler
	hub        *Hub
	bridge     *EventBridge
	cfg        *config.Config
}

func NewGateway(service *matchmaking.Service, reconciler *matchmaking.Reconciler, hub *Hub, bridge *EventBridge, cfg *config.Config) *Gateway {
	return &Gateway{
		service:    service,
		reconciler: reconciler,
		hub:        hub,
		bridge:     bridge,
		cfg:        cfg,
	}
}

// HandleWebSocket upgrades an authenticated connection and starts its pumps.
// The bearer token comes from the `token` query parameter or the
// Authorization header and is validated once, here; its subject is the only
// identity the connection ever acts as.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	userID, err := auth.ParseUserID(token, g.cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := newClient(conn, userID)
	g.hub.Register(client)

	log.Printf("[WS] User %s connected", userID)

	go client.writePump()
	go g.readLoop(client)
}

// readLoop reads client intents until the transport drops, then runs the
// cleanup sequence: unregister, stop the reconcile loop, withdraw any live
// search so a dropped player does not occupy the queue.
func (g *Gateway) readLoop(client *Client) {
	defer func() {
		client.conn.Close()
		if g.hub.Unregister(client) {
			g.reconciler.Stop(client.userID)
			if err := g.service.Cancel(context.Background(), client.userID); err != nil {
				log.Printf("[WS] Cleanup cancel failed for user %s: %v", client.userID, err)
			}
			log.Printf("[WS] User %s disconnected", client.userID)
		}
	}()

	client.conn.SetReadLimit(65536)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error for user %s: %v", client.userID, err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			g.hub.Push(client.userID, errorEvent("invalid message"))
			continue
		}

		switch msg.Type {
		case "search_match":
			g.handleSearch(client, msg.Data)
		case "cancel_search":
			g.handleCancel(client)
		default:
			g.hub.Push(client.userID, errorEvent("unknown message type"))
		}
	}
}

func (g *Gateway) handleSearch(client *Client, data json.RawMessage) {
	var req searchData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			g.hub.Push(client.userID, errorEvent("invalid search_match payload"))
			return
		}
	}

	p, err := g.service.Enqueue(context.Background(), client.userID, req.GameID)
	if err != nil {
		if errors.Is(err, matchmaking.ErrInvalidGameID) {
			g.hub.Push(client.userID, errorEvent("gameId is required"))
			return
		}
		log.Printf("[WS] Enqueue failed for user %s: %v", client.userID, err)
		g.hub.Push(client.userID, errorEvent("failed to start search"))
		return
	}

	if p.Searching {
		g.hub.Push(client.userID, gin.H{"type": "searching"})
		g.startReconcile(client.userID)
		return
	}

	// Synchronous match: tell the caller now, best-effort the opponent
	// (who may be on another process), and still start the reconcile loop
	// as a safety net; it re-observes the match and stops itself.
	g.hub.Push(client.userID, matchFoundEvent(p))
	go g.bridge.NotifyMatchFound(context.Background(), p.OpponentID, matchmaking.Pairing{
		MatchID:    p.MatchID,
		OpponentID: client.userID,
		GameID:     p.GameID,
	})
	g.startReconcile(client.userID)
}

func (g *Gateway) handleCancel(client *Client) {
	if err := g.service.Cancel(context.Background(), client.userID); err != nil {
		log.Printf("[WS] Cancel failed for user %s: %v", client.userID, err)
		g.hub.Push(client.userID, errorEvent("failed to cancel search"))
		return
	}
	g.reconciler.Stop(client.userID)
	g.hub.Push(client.userID, gin.H{"type": "search_cancelled"})
}

func (g *Gateway) startReconcile(userID string) {
	g.reconciler.Start(userID, func(p matchmaking.Pairing) {
		g.hub.Push(userID, matchFoundEvent(p))
	})
}

func matchFoundEvent(p matchmaking.Pairing) gin.H {
	return gin.H{
		"type":       "match_found",
		"matchId":    p.MatchID,
		"opponentId": p.OpponentID,
		"gameId":     p.GameID,
	}
}

func errorEvent(message string) gin.H {
	return gin.H{"type": "error", "message": message}
}
