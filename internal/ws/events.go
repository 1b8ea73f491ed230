package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/studyplay/backend/internal/matchmaking"
)

const matchEventsChannel = "matchmaking_events"

type matchEvent struct {
	UserID     string `json:"user_id"`
	MatchID    string `json:"match_id"`
	OpponentID string `json:"opponent_id"`
	GameID     string `json:"game_id"`
}

// EventBridge fans match notifications out to whichever process holds the
// target user's connection, over a Redis pub/sub channel every process
// subscribes to. Strictly best-effort: a lost publish costs nothing, because
// the reconcile loop on the owning process is the durable path. Without
// Redis it degrades to local-only delivery.
type EventBridge struct {
	rdb *redis.Client
	hub *Hub
}

func NewEventBridge(rdb *redis.Client, hub *Hub) *EventBridge {
	return &EventBridge{rdb: rdb, hub: hub}
}

// NotifyMatchFound pushes a match_found event toward userID. The event is
// published for every process (this one included) rather than pushed
// directly, so a single code path covers local and remote opponents.
func (b *EventBridge) NotifyMatchFound(ctx context.Context, userID string, p matchmaking.Pairing) {
	if b.rdb == nil {
		b.hub.Push(userID, matchFoundEvent(p))
		return
	}

	payload, err := json.Marshal(matchEvent{
		UserID:     userID,
		MatchID:    p.MatchID,
		OpponentID: p.OpponentID,
		GameID:     p.GameID,
	})
	if err != nil {
		log.Printf("[WS] Error marshaling match event for user %s: %v", userID, err)
		return
	}

	if err := b.rdb.Publish(ctx, matchEventsChannel, payload).Err(); err != nil {
		log.Printf("[WS] Failed to publish match event for user %s: %v", userID, err)
		// Fall back to a local push; the reconciler covers the rest.
		b.hub.Push(userID, matchFoundEvent(p))
	}
}

// Run subscribes to the match events channel and delivers incoming events to
// locally registered users. Blocks until ctx is done.
func (b *EventBridge) Run(ctx context.Context) {
	if b.rdb == nil {
		log.Println("[WS] Redis not configured; match event subscriber not started")
		return
	}

	pubsub := b.rdb.Subscribe(ctx, matchEventsChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	log.Println("[WS] match event subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev matchEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] Invalid match event payload: %v", err)
				continue
			}
			b.hub.Push(ev.UserID, matchFoundEvent(matchmaking.Pairing{
				MatchID:    ev.MatchID,
				OpponentID: ev.OpponentID,
				GameID:     ev.GameID,
			}))
		}
	}
}
