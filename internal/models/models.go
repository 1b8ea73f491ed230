package models

import (
	"database/sql"
	"time"
)

// Queue entry statuses.
const (
	QueueSearching = "searching"
	QueueMatched   = "matched"
	QueueCancelled = "cancelled"
	QueueExpired   = "expired"
)

// Match statuses.
const (
	MatchPending = "pending"
	MatchExpired = "expired"
)

// QueueEntry represents a single player's open search for an opponent.
// At most one row per user may be in status 'searching' at any time
// (enforced by a partial unique index).
type QueueEntry struct {
	ID         int64          `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	GameID     string         `db:"game_id" json:"game_id"`
	Status     string         `db:"status" json:"status"`
	MatchID    sql.NullString `db:"match_id" json:"match_id,omitempty"`
	OpponentID sql.NullString `db:"opponent_id" json:"opponent_id,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	MatchedAt  sql.NullTime   `db:"matched_at" json:"matched_at,omitempty"`
	ExpiresAt  time.Time      `db:"expires_at" json:"expires_at"`
}

// Match represents a successful pairing of two players. Created exactly once
// per pairing transaction and never mutated afterward, except for expiry.
type Match struct {
	ID        string    `db:"id" json:"id"`
	GameID    string    `db:"game_id" json:"game_id"`
	Player1ID string    `db:"player1_id" json:"player1_id"`
	Player2ID string    `db:"player2_id" json:"player2_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
