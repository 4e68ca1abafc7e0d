package cluster

import (
	"context"
	"log"
	"sync"
	"time"
)

// refreshable is the slice of Cluster the Refresher needs; tests inject a
// counter here.
type refreshable interface {
	Refresh() error
}

// Refresher re-runs the topology refresh on a fixed interval, for
// deployments that want the slot table to converge on cluster changes
// without waiting for a command to hit a redirect. Optional; a Cluster works
// fine without one.
//
// Thread-safe: Start blocks until stopped, Stop may be called from any
// goroutine and is safe to call more than once.
type Refresher struct {
	target   refreshable
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRefresher creates a refresher driving target every interval.
func NewRefresher(target refreshable, interval time.Duration) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		target:   target,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the refresh loop in the current goroutine until the given
// context or the refresher itself is canceled. A nil ctx falls back to the
// internal context. Refresh failures are logged and the loop keeps going;
// a transiently unreachable cluster is exactly when the next tick matters.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	defer r.wg.Done()

	if ctx == nil {
		ctx = r.ctx
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.target.Refresh(); err != nil {
				log.Printf("periodic topology refresh failed: %v", err)
			}
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		}
	}
}

// Stop cancels the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.stopOnce.Do(r.cancel)
	r.wg.Wait()
}
