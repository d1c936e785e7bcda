package backup

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mrlokans/bookvault/internal/entities"
)

// ProgressSink receives progress from a running import or export and tells
// it whether to stop. Cancellation is polled between entries and records.
type ProgressSink interface {
	// SetMaxPos raises the expected number of steps. Smaller values than
	// the current maximum are ignored.
	SetMaxPos(max int)
	// Publish advances the position by delta steps.
	Publish(delta int, message string)
	IsCancelled() bool
}

// ProgressReporter persists job progress so other processes can poll it.
type ProgressReporter interface {
	StartSync(totalItems int) error
	SetTotal(totalItems int) error
	UpdateProgress(processed, succeeded, failed, skipped int, currentItem string) error
	CompleteSync(status entities.SyncStatus, errorMsg string) error
}

// NopProgress is a ProgressSink that is never cancelled.
type NopProgress struct{}

func (NopProgress) SetMaxPos(int)       {}
func (NopProgress) Publish(int, string) {}
func (NopProgress) IsCancelled() bool   { return false }

// Tracker is the standard ProgressSink. It is cancelled when its context
// is done or Cancel is called, and forwards updates to an optional
// ProgressReporter.
type Tracker struct {
	ctx       context.Context
	reporter  ProgressReporter
	logger    *slog.Logger
	cancelled atomic.Bool

	mu      sync.Mutex
	max     int
	pos     int
	message string
}

// NewTracker creates a Tracker bound to ctx. reporter may be nil.
func NewTracker(ctx context.Context, reporter ProgressReporter, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{ctx: ctx, reporter: reporter, logger: logger}
}

func (t *Tracker) SetMaxPos(max int) {
	t.mu.Lock()
	if max <= t.max {
		t.mu.Unlock()
		return
	}
	t.max = max
	t.mu.Unlock()

	if t.reporter != nil {
		if err := t.reporter.SetTotal(max); err != nil {
			t.logger.Warn("failed to persist progress total", "error", err)
		}
	}
}

func (t *Tracker) Publish(delta int, message string) {
	t.mu.Lock()
	t.pos += delta
	if message != "" {
		t.message = message
	}
	pos, msg := t.pos, t.message
	t.mu.Unlock()

	if t.reporter != nil {
		if err := t.reporter.UpdateProgress(pos, pos, 0, 0, msg); err != nil {
			t.logger.Warn("failed to persist progress", "error", err)
		}
	}
}

func (t *Tracker) IsCancelled() bool {
	if t.cancelled.Load() {
		return true
	}
	return t.ctx != nil && t.ctx.Err() != nil
}

// Cancel requests the operation to stop at the next check.
func (t *Tracker) Cancel() {
	t.cancelled.Store(true)
}

// Snapshot returns the current position, maximum and message.
func (t *Tracker) Snapshot() (pos, max int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos, t.max, t.message
}

// contextProgress adds context cancellation to a caller's sink.
type contextProgress struct {
	ProgressSink
	ctx context.Context
}

func (p contextProgress) IsCancelled() bool {
	return p.ctx.Err() != nil || p.ProgressSink.IsCancelled()
}

// WithContext returns a sink that also reports cancellation once ctx is
// done. A nil progress is replaced by NopProgress.
func WithContext(ctx context.Context, progress ProgressSink) ProgressSink {
	if progress == nil {
		progress = NopProgress{}
	}
	if ctx == nil {
		return progress
	}
	return contextProgress{ProgressSink: progress, ctx: ctx}
}
