package matchmaking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Reconciler runs one polling loop per searching user. The loop covers the
// gap between "a match was created by another process acting on the
// opponent's enqueue" and "this process pushes the notification": it polls
// the pairing engine and delivers the match when one appears. Delivery is
// at-least-once; clients dedupe by match id.
type Reconciler struct {
	service  *Service
	interval time.Duration
	maxAge   time.Duration

	mu    sync.Mutex
	loops map[string]*loop
}

type loop struct {
	cancel context.CancelFunc
}

// NewReconciler creates a reconciler that polls every interval and abandons
// a loop after maxAge, so a forgotten loop can never outlive the queue entry
// it watches.
func NewReconciler(service *Service, interval, maxAge time.Duration) *Reconciler {
	return &Reconciler{
		service:  service,
		interval: interval,
		maxAge:   maxAge,
		loops:    make(map[string]*loop),
	}
}

// Start begins (or restarts) the loop for a user. A prior loop for the same
// user is stopped first: a new search supersedes the old one.
func (r *Reconciler) Start(userID string, deliver func(Pairing)) {
	ctx, cancel := context.WithTimeout(context.Background(), r.maxAge)
	l := &loop{cancel: cancel}

	r.mu.Lock()
	if old, ok := r.loops[userID]; ok {
		old.cancel()
	}
	r.loops[userID] = l
	r.mu.Unlock()

	go r.run(ctx, l, userID, deliver)
}

// Stop halts the user's loop, if any. Safe to call repeatedly.
func (r *Reconciler) Stop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loops[userID]; ok {
		l.cancel()
		delete(r.loops, userID)
	}
}

// StopAll halts every loop. Called on shutdown.
func (r *Reconciler) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, l := range r.loops {
		l.cancel()
		delete(r.loops, userID)
	}
}

// Running reports the number of live loops.
func (r *Reconciler) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

func (r *Reconciler) run(ctx context.Context, l *loop, userID string, deliver func(Pairing)) {
	defer func() {
		r.mu.Lock()
		if r.loops[userID] == l {
			delete(r.loops, userID)
		}
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, err := r.service.Status(ctx, userID)
			if errors.Is(err, ErrNotSearching) {
				// Cancelled, expired, or never enqueued; nothing to deliver.
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[RECONCILE] Status check failed for user %s: %v", userID, err)
				continue
			}
			if !p.Searching {
				deliver(p)
				return
			}
		}
	}
}
