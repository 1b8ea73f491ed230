package matchmaking

import (
	"context"
	"errors"
	"time"
)

// ErrNotSearching is returned by Status when the user has no live search and
// no pending match: the entry is absent, cancelled, expired, or its match
// already expired unacted.
var ErrNotSearching = errors.New("matchmaking: user is not searching")

// Pairing is the outcome of an enqueue or status call. When Searching is
// false the user is matched and MatchID/OpponentID/GameID are set.
type Pairing struct {
	Searching  bool
	MatchID    string
	OpponentID string
	GameID     string
}

// Store is the durable queue: the single source of truth for who is waiting
// for what game, and for completed pairings.
//
// EnqueueOrClaim is the claim-and-flip step and must be atomic: two
// concurrent calls for the same game may never claim the same waiting entry,
// and a cancel racing a claim must commit to exactly one outcome. That
// isolation belongs to the store (row locks or equivalent), not to process
// memory, because several server processes share one store.
type Store interface {
	// EnqueueOrClaim supersedes any prior search by userID, then either
	// claims the oldest compatible waiting entry for gameID (returning a
	// matched Pairing) or records userID as searching.
	EnqueueOrClaim(ctx context.Context, userID, gameID string) (Pairing, error)

	// Status reports the user's most recent entry: a searching Pairing, a
	// matched Pairing, or ErrNotSearching.
	Status(ctx context.Context, userID string) (Pairing, error)

	// Cancel transitions any searching entry for the user to cancelled.
	// Idempotent: a no-op when the entry is already terminal or absent.
	Cancel(ctx context.Context, userID string) error

	// ExpireQueued cancels searching entries whose expires_at has passed.
	// Returns the number of entries expired.
	ExpireQueued(ctx context.Context, now time.Time) (int64, error)

	// ExpireMatches expires pending matches created before cutoff that
	// neither player acted on. Returns the number of matches expired.
	ExpireMatches(ctx context.Context, cutoff time.Time) (int64, error)
}
