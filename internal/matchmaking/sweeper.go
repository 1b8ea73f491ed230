package matchmaking

import (
	"context"
	"log"
	"time"
)

// StartSweeper runs a background job that garbage-collects the queue: stale
// searching entries become expired (so a row orphaned by a process crash
// stops being claimable) and pending matches neither player acted on within
// matchExpiry are closed out. Players are not requeued automatically; they
// were notified at least once, so silence means a fresh search is required.
func StartSweeper(ctx context.Context, store Store, interval, matchExpiry time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[SWEEPER] Starting queue sweeper (every %v, match expiry %v)", interval, matchExpiry)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SWEEPER] Sweeper stopped")
			return
		case <-ticker.C:
			sweepOnce(ctx, store, matchExpiry)
		}
	}
}

func sweepOnce(ctx context.Context, store Store, matchExpiry time.Duration) {
	now := time.Now()

	if n, err := store.ExpireQueued(ctx, now); err != nil {
		log.Printf("[SWEEPER] Failed to expire queue entries: %v", err)
	} else if n > 0 {
		log.Printf("[SWEEPER] Expired %d stale queue entries", n)
	}

	if n, err := store.ExpireMatches(ctx, now.Add(-matchExpiry)); err != nil {
		log.Printf("[SWEEPER] Failed to expire matches: %v", err)
	} else if n > 0 {
		log.Printf("[SWEEPER] Expired %d unacted matches", n)
	}
}
