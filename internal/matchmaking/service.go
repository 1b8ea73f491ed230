package matchmaking

import (
	"context"
	"errors"
	"log"
)

// ErrInvalidGameID rejects a search with no game. Surfaced to the client as
// an error event; queue state is untouched.
var ErrInvalidGameID = errors.New("matchmaking: gameId is required")

// Service is the pairing engine. It is stateless aside from the store it
// operates on; all mutation of the queue goes through here, never through ad
// hoc reads-then-writes from the gateway.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Enqueue pairs the user with the oldest compatible waiter, or records them
// as searching. Any prior search by the same user is superseded, never
// duplicated.
func (s *Service) Enqueue(ctx context.Context, userID, gameID string) (Pairing, error) {
	if userID == "" {
		return Pairing{}, errors.New("matchmaking: userId is required")
	}
	if gameID == "" {
		return Pairing{}, ErrInvalidGameID
	}

	p, err := s.store.EnqueueOrClaim(ctx, userID, gameID)
	if err != nil {
		return Pairing{}, err
	}
	if !p.Searching {
		log.Printf("[MATCHMAKER] User %s matched with %s (match=%s game=%s)", userID, p.OpponentID, p.MatchID, gameID)
	}
	return p, nil
}

// Status reports the user's current search state. Read-only; used by the
// reconciler and by clients recovering from a missed push.
func (s *Service) Status(ctx context.Context, userID string) (Pairing, error) {
	return s.store.Status(ctx, userID)
}

// Cancel withdraws the user's search. Idempotent: cancelling an already
// matched, cancelled, or absent entry is a no-op.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	return s.store.Cancel(ctx, userID)
}
