package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studyplay/backend/internal/models"
)

// errClaimConflict means a candidate row was flipped under us between the
// locking select and the update. With FOR UPDATE this should not happen, but
// it is cheap to detect and maps onto the same retry path as a serialization
// failure.
var errClaimConflict = errors.New("matchmaking: claim conflict")

// PostgresStore implements Store over the match_queue and matches tables.
type PostgresStore struct {
	db          *sqlx.DB
	queueExpiry time.Duration
}

func NewPostgresStore(db *sqlx.DB, queueExpiry time.Duration) *PostgresStore {
	return &PostgresStore{db: db, queueExpiry: queueExpiry}
}

// EnqueueOrClaim attempts the transactional claim, retrying once on a
// conflict: a conflict means another process flipped our candidate first,
// and the retry simply sees the next-oldest entry. If both attempts
// conflict, the caller is inserted as searching and the reconciler takes
// over. Conflicts are never surfaced to the client.
func (s *PostgresStore) EnqueueOrClaim(ctx context.Context, userID, gameID string) (Pairing, error) {
	var p Pairing
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		p, err = s.enqueueTx(ctx, userID, gameID, true)
		if err == nil {
			return p, nil
		}
		if !isRetryable(err) {
			return Pairing{}, err
		}
		log.Printf("[MATCHMAKER] Claim conflict for user %s in game %s (attempt %d): %v", userID, gameID, attempt+1, err)
	}
	return s.enqueueTx(ctx, userID, gameID, false)
}

func (s *PostgresStore) enqueueTx(ctx context.Context, userID, gameID string, claim bool) (Pairing, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Pairing{}, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer tx.Rollback()

	// Supersede any previous search by this user: cancelled then replaced,
	// never duplicated.
	_, err = tx.ExecContext(ctx, `
		UPDATE match_queue
		SET status = 'cancelled'
		WHERE user_id = $1 AND status = 'searching'
	`, userID)
	if err != nil {
		return Pairing{}, fmt.Errorf("supersede prior search: %w", err)
	}

	if claim {
		// Oldest compatible waiting entry. FOR UPDATE SKIP LOCKED keeps two
		// concurrent claims for the same game from selecting the same row.
		var opponent models.QueueEntry
		err = tx.GetContext(ctx, &opponent, `
			SELECT id, user_id
			FROM match_queue
			WHERE game_id = $1
			  AND status = 'searching'
			  AND user_id <> $2
			  AND expires_at > NOW()
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`, gameID, userID)

		switch {
		case err == nil:
			matchID := uuid.NewString()

			_, err = tx.ExecContext(ctx, `
				INSERT INTO matches (id, game_id, player1_id, player2_id, status, created_at)
				VALUES ($1, $2, $3, $4, 'pending', NOW())
			`, matchID, gameID, opponent.UserID, userID)
			if err != nil {
				return Pairing{}, fmt.Errorf("create match: %w", err)
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE match_queue
				SET status = 'matched', match_id = $1, opponent_id = $2, matched_at = NOW()
				WHERE id = $3 AND status = 'searching'
			`, matchID, userID, opponent.ID)
			if err != nil {
				return Pairing{}, fmt.Errorf("flip opponent entry: %w", err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return Pairing{}, errClaimConflict
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO match_queue (user_id, game_id, status, match_id, opponent_id, created_at, matched_at, expires_at)
				VALUES ($1, $2, 'matched', $3, $4, NOW(), NOW(), NOW() + $5 * INTERVAL '1 second')
			`, userID, gameID, matchID, opponent.UserID, int(s.queueExpiry.Seconds()))
			if err != nil {
				return Pairing{}, fmt.Errorf("insert caller entry: %w", err)
			}

			if err := tx.Commit(); err != nil {
				return Pairing{}, fmt.Errorf("commit claim: %w", err)
			}

			log.Printf("[MATCHMAKER] Match %s created: %s vs %s (game=%s)", matchID, opponent.UserID, userID, gameID)
			return Pairing{MatchID: matchID, OpponentID: opponent.UserID, GameID: gameID}, nil

		case errors.Is(err, sql.ErrNoRows):
			// Nobody waiting; fall through to insert as searching.

		default:
			return Pairing{}, fmt.Errorf("select waiting entry: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_queue (user_id, game_id, status, created_at, expires_at)
		VALUES ($1, $2, 'searching', NOW(), NOW() + $3 * INTERVAL '1 second')
	`, userID, gameID, int(s.queueExpiry.Seconds()))
	if err != nil {
		return Pairing{}, fmt.Errorf("insert searching entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Pairing{}, fmt.Errorf("commit enqueue: %w", err)
	}

	return Pairing{Searching: true, GameID: gameID}, nil
}

func (s *PostgresStore) Status(ctx context.Context, userID string) (Pairing, error) {
	var row struct {
		Status      string `db:"status"`
		GameID      string `db:"game_id"`
		MatchID     string `db:"match_id"`
		OpponentID  string `db:"opponent_id"`
		MatchStatus string `db:"match_status"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT q.status,
		       q.game_id,
		       COALESCE(q.match_id::text, '') AS match_id,
		       COALESCE(q.opponent_id, '') AS opponent_id,
		       COALESCE(m.status, '') AS match_status
		FROM match_queue q
		LEFT JOIN matches m ON m.id = q.match_id
		WHERE q.user_id = $1
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Pairing{}, ErrNotSearching
	}
	if err != nil {
		return Pairing{}, fmt.Errorf("query status: %w", err)
	}

	switch row.Status {
	case models.QueueSearching:
		return Pairing{Searching: true, GameID: row.GameID}, nil
	case models.QueueMatched:
		if row.MatchStatus != models.MatchPending {
			// Match expired unacted; the user must search again.
			return Pairing{}, ErrNotSearching
		}
		return Pairing{MatchID: row.MatchID, OpponentID: row.OpponentID, GameID: row.GameID}, nil
	default:
		return Pairing{}, ErrNotSearching
	}
}

func (s *PostgresStore) Cancel(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE match_queue
		SET status = 'cancelled'
		WHERE user_id = $1 AND status = 'searching'
	`, userID)
	if err != nil {
		return fmt.Errorf("cancel search: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExpireQueued(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE match_queue
		SET status = 'expired'
		WHERE status = 'searching' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire queue entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *PostgresStore) ExpireMatches(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET status = 'expired'
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire matches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// isRetryable reports whether the claim transaction should be retried
// against the next candidate.
func isRetryable(err error) bool {
	if errors.Is(err, errClaimConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03": // serialization failure, deadlock, lock not available
			return true
		}
	}
	return false
}
