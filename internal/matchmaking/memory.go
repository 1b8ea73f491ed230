package matchmaking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyplay/backend/internal/models"
)

type memoryEntry struct {
	seq        int64
	userID     string
	gameID     string
	status     string
	matchID    string
	opponentID string
	createdAt  time.Time
	expiresAt  time.Time
}

// MemoryStore implements Store with a mutex in place of row locks. One
// process only: it backs unit tests and DB-less local runs, while the
// Postgres store carries the same contract in production.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	queueExpiry time.Duration
	entries     []*memoryEntry
	matches     map[string]*models.Match
}

func NewMemoryStore(queueExpiry time.Duration) *MemoryStore {
	return &MemoryStore{
		queueExpiry: queueExpiry,
		matches:     make(map[string]*models.Match),
	}
}

func (s *MemoryStore) EnqueueOrClaim(ctx context.Context, userID, gameID string) (Pairing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.cancelSearchingLocked(userID)

	// Oldest compatible waiting entry, FIFO by insertion order.
	var candidate *memoryEntry
	for _, e := range s.entries {
		if e.status != models.QueueSearching || e.gameID != gameID || e.userID == userID {
			continue
		}
		if !e.expiresAt.After(now) {
			continue
		}
		if candidate == nil || e.seq < candidate.seq {
			candidate = e
		}
	}

	if candidate == nil {
		s.appendLocked(&memoryEntry{
			userID:    userID,
			gameID:    gameID,
			status:    models.QueueSearching,
			createdAt: now,
			expiresAt: now.Add(s.queueExpiry),
		})
		return Pairing{Searching: true, GameID: gameID}, nil
	}

	matchID := uuid.NewString()
	s.matches[matchID] = &models.Match{
		ID:        matchID,
		GameID:    gameID,
		Player1ID: candidate.userID,
		Player2ID: userID,
		Status:    models.MatchPending,
		CreatedAt: now,
	}

	candidate.status = models.QueueMatched
	candidate.matchID = matchID
	candidate.opponentID = userID

	s.appendLocked(&memoryEntry{
		userID:     userID,
		gameID:     gameID,
		status:     models.QueueMatched,
		matchID:    matchID,
		opponentID: candidate.userID,
		createdAt:  now,
		expiresAt:  now.Add(s.queueExpiry),
	})

	return Pairing{MatchID: matchID, OpponentID: candidate.userID, GameID: gameID}, nil
}

func (s *MemoryStore) Status(ctx context.Context, userID string) (Pairing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *memoryEntry
	for _, e := range s.entries {
		if e.userID != userID {
			continue
		}
		if latest == nil || e.seq > latest.seq {
			latest = e
		}
	}
	if latest == nil {
		return Pairing{}, ErrNotSearching
	}

	switch latest.status {
	case models.QueueSearching:
		return Pairing{Searching: true, GameID: latest.gameID}, nil
	case models.QueueMatched:
		m := s.matches[latest.matchID]
		if m == nil || m.Status != models.MatchPending {
			return Pairing{}, ErrNotSearching
		}
		return Pairing{MatchID: latest.matchID, OpponentID: latest.opponentID, GameID: latest.gameID}, nil
	default:
		return Pairing{}, ErrNotSearching
	}
}

func (s *MemoryStore) Cancel(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSearchingLocked(userID)
	return nil
}

func (s *MemoryStore) ExpireQueued(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, e := range s.entries {
		if e.status == models.QueueSearching && !e.expiresAt.After(now) {
			e.status = models.QueueExpired
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ExpireMatches(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.matches {
		if m.Status == models.MatchPending && m.CreatedAt.Before(cutoff) {
			m.Status = models.MatchExpired
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) cancelSearchingLocked(userID string) {
	for _, e := range s.entries {
		if e.userID == userID && e.status == models.QueueSearching {
			e.status = models.QueueCancelled
		}
	}
}

func (s *MemoryStore) appendLocked(e *memoryEntry) {
	s.seq++
	e.seq = s.seq
	s.entries = append(s.entries, e)
}
