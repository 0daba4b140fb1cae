package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSessionPurger struct {
	calls   atomic.Int32
	purged  int64
	err     error
}

func (f *fakeSessionPurger) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	f.calls.Add(1)
	return f.purged, f.err
}

func TestSessionPurgeWorker_PurgesImmediatelyThenOnCancel(t *testing.T) {
	store := &fakeSessionPurger{purged: 3}
	w := NewSessionPurgeWorker(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}

	if store.calls.Load() == 0 {
		t.Error("expected at least one purge call")
	}
	if w.Name() != "session_purge" {
		t.Errorf("Name() = %q", w.Name())
	}
}
