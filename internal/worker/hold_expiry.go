// Package worker contains background loops that run for the lifetime of
// the server process.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/avioline/flight-seat-reservation/internal/engine"
)

// HoldExpiry reclaims seats whose hold outlived the configured TTL.  The
// legacy system never reclaimed abandoned holds; that behavior is kept
// by default (TTL zero disables the worker entirely), and operators opt
// in with HOLD_TTL.
type HoldExpiry struct {
	eng      *engine.Engine
	ttl      time.Duration
	interval time.Duration
}

// NewHoldExpiry builds the worker.  The sweep interval is a quarter of
// the TTL, clamped to [5s, 1m], so a hold never outlives its TTL by more
// than a minute.
func NewHoldExpiry(eng *engine.Engine, ttl time.Duration) *HoldExpiry {
	interval := ttl / 4
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return &HoldExpiry{eng: eng, ttl: ttl, interval: interval}
}

// Run sweeps until ctx is cancelled.  Each sweep is one atomic store
// update; reclaimed seats trigger a snapshot broadcast through the
// engine like any other mutation.
func (w *HoldExpiry) Run(ctx context.Context) {
	if w.ttl <= 0 {
		return
	}
	log.Printf("hold-expiry: reclaiming holds older than %s every %s", w.ttl, w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("hold-expiry: stopped")
			return
		case <-ticker.C:
			n, err := w.eng.ReclaimExpired(ctx, w.ttl)
			if err != nil {
				log.Printf("hold-expiry: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("hold-expiry: freed %d expired hold(s)", n)
			}
		}
	}
}
