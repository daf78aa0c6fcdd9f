package waitlist

import (
	"context"
	"sync/atomic"
	"time"

	"stolik/internal/domain"
	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// FailoverWaitlist serves from the primary queue until it errors, then
// falls back to the in-memory queue and probes the primary once a minute.
// Entries queued while degraded live only in the fallback; that trade-off
// matches the rest of the system's tolerant posture under races.
type FailoverWaitlist struct {
	primary   domain.Waitlist
	fallback  domain.Waitlist
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverWaitlist(primary, fallback domain.Waitlist, logger *zerolog.Logger) *FailoverWaitlist {
	return &FailoverWaitlist{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (w *FailoverWaitlist) markDown(err error) {
	w.logger.Error().Err(err).Msg("primary waitlist failed, falling back to memory")
	w.isDown.Store(true)
	w.lastCheck.Store(time.Now().UnixNano())
}

func (w *FailoverWaitlist) shouldProbe() bool {
	return time.Since(time.Unix(0, w.lastCheck.Load())) > time.Minute
}

func (w *FailoverWaitlist) Enqueue(ctx context.Context, entry models.WaitlistEntry) error {
	if !w.isDown.Load() {
		err := w.primary.Enqueue(ctx, entry)
		if err == nil {
			return nil
		}
		w.markDown(err)
	}
	return w.fallback.Enqueue(ctx, entry)
}

func (w *FailoverWaitlist) PeekHead(ctx context.Context) (models.WaitlistEntry, bool, error) {
	if !w.isDown.Load() {
		entry, ok, err := w.primary.PeekHead(ctx)
		if err == nil {
			return entry, ok, nil
		}
		w.markDown(err)
	}

	if w.isDown.Load() && w.shouldProbe() {
		entry, ok, err := w.primary.PeekHead(ctx)
		if err == nil {
			w.isDown.Store(false)
			return entry, ok, nil
		}
		w.lastCheck.Store(time.Now().UnixNano())
	}

	return w.fallback.PeekHead(ctx)
}

func (w *FailoverWaitlist) DequeueHead(ctx context.Context) error {
	if !w.isDown.Load() {
		err := w.primary.DequeueHead(ctx)
		if err == nil {
			return nil
		}
		w.markDown(err)
	}
	return w.fallback.DequeueHead(ctx)
}

func (w *FailoverWaitlist) Len(ctx context.Context) (int, error) {
	if !w.isDown.Load() {
		n, err := w.primary.Len(ctx)
		if err == nil {
			return n, nil
		}
		w.markDown(err)
	}
	return w.fallback.Len(ctx)
}

func (w *FailoverWaitlist) Entries(ctx context.Context) ([]models.WaitlistEntry, error) {
	if !w.isDown.Load() {
		entries, err := w.primary.Entries(ctx)
		if err == nil {
			return entries, nil
		}
		w.markDown(err)
	}
	return w.fallback.Entries(ctx)
}
