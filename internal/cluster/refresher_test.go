package cluster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingRefreshable records refresh invocations for the tests.
type countingRefreshable struct {
	mu    sync.Mutex
	count int
	err   error
}

func (c *countingRefreshable) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.err
}

func (c *countingRefreshable) refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// TestRefresherTicks verifies the loop drives Refresh repeatedly until
// stopped, and that Stop is safe to call twice.
func TestRefresherTicks(t *testing.T) {
	target := &countingRefreshable{}
	r := NewRefresher(target, 10*time.Millisecond)

	go r.Start(nil)

	// A few intervals should accumulate a few refreshes.
	deadline := time.After(2 * time.Second)
	for target.refreshes() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 refreshes, got %d", target.refreshes())
		case <-time.After(5 * time.Millisecond):
		}
	}

	r.Stop()
	r.Stop() // idempotent

	settled := target.refreshes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, target.refreshes(), "no refreshes after Stop")
}

// TestRefresherContextCancel verifies the caller's context also terminates
// the loop.
func TestRefresherContextCancel(t *testing.T) {
	target := &countingRefreshable{}
	r := NewRefresher(target, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop on context cancellation")
	}
}

// TestRefresherKeepsGoingOnError verifies a failing refresh does not kill
// the loop.
func TestRefresherKeepsGoingOnError(t *testing.T) {
	target := &countingRefreshable{err: assert.AnError}
	r := NewRefresher(target, 5*time.Millisecond)
	defer r.Stop()

	go r.Start(nil)

	deadline := time.After(2 * time.Second)
	for target.refreshes() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected the loop to survive errors, got %d refreshes", target.refreshes())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
