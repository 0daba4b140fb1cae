package worker

import (
	"context"
	"log/slog"
	"time"
)

const idlePollInterval = 15 * time.Second

// IdleUnloadTarget is the subset of the Shared Inference Context surface
// the idle-unload worker needs: how long the current child has been idle,
// and how to stop it.
type IdleUnloadTarget interface {
	IdleDuration() (time.Duration, bool)
	Stop() error
}

// IdleUnloadWorker stops the shared native inference process after it has
// been idle for longer than KeepAlive. A zero KeepAlive disables the
// worker's effect; callers should simply not register it in that case.
type IdleUnloadWorker struct {
	target    IdleUnloadTarget
	keepAlive time.Duration
}

// NewIdleUnloadWorker creates an IdleUnloadWorker that unloads target after
// keepAlive of inactivity.
func NewIdleUnloadWorker(target IdleUnloadTarget, keepAlive time.Duration) *IdleUnloadWorker {
	return &IdleUnloadWorker{target: target, keepAlive: keepAlive}
}

// Name returns the worker identifier.
func (w *IdleUnloadWorker) Name() string { return "idle_unload" }

// Run polls the target's idle duration and stops it once it exceeds
// keepAlive, until ctx is cancelled.
func (w *IdleUnloadWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.unloadIfIdle()
		case <-ctx.Done():
			return nil
		}
	}
}

// unloadIfIdle stops the target if it is loaded and has been idle for at
// least keepAlive.
func (w *IdleUnloadWorker) unloadIfIdle() {
	idle, loaded := w.target.IdleDuration()
	if loaded && idle >= w.keepAlive {
		slog.Info("worker: unloading idle inference context", "idle", idle)
		if err := w.target.Stop(); err != nil {
			slog.Error("worker: idle unload failed", "error", err)
		}
	}
}
