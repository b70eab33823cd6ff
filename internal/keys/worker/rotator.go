// Package worker runs the background signing key rotation loop.
package worker

import (
	"context"
	"log/slog"
	"time"

	keysService "github.com/allisson/authd/internal/keys/service"
)

// Rotator periodically rotates signing keys past their signing window and
// purges keys that left their validation window.
type Rotator struct {
	keyManager keysService.KeyManager
	interval   time.Duration
	done       chan struct{}
}

// NewRotator creates a new Rotator that checks every interval.
func NewRotator(keyManager keysService.KeyManager, interval time.Duration) *Rotator {
	return &Rotator{
		keyManager: keyManager,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// Start runs the rotation loop until the context is cancelled. One sweep runs
// immediately so a freshly started instance does not wait a full interval
// with an expired key.
func (r *Rotator) Start(ctx context.Context) {
	go r.run(ctx)
}

// Wait blocks until the rotation loop has stopped.
func (r *Rotator) Wait() {
	<-r.done
}

func (r *Rotator) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Rotator) sweep(ctx context.Context) {
	if err := r.keyManager.RotateDue(ctx); err != nil {
		slog.Error("signing key rotation sweep failed", "error", err)
	}

	purged, err := r.keyManager.PurgeExpired(ctx)
	if err != nil {
		slog.Error("signing key purge failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged expired signing keys", "count", purged)
	}
}
