package waitlist

import (
	"context"
	"sync"

	"stolik/internal/models"
)

// MemoryWaitlist is the in-process FIFO queue. Single-writer semantics:
// every operation holds the mutex so no caller ever observes a
// partially-updated queue.
type MemoryWaitlist struct {
	mu      sync.Mutex
	entries []models.WaitlistEntry
}

func NewMemoryWaitlist() *MemoryWaitlist {
	return &MemoryWaitlist{}
}

func (w *MemoryWaitlist) Enqueue(ctx context.Context, entry models.WaitlistEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	return nil
}

func (w *MemoryWaitlist) PeekHead(ctx context.Context) (models.WaitlistEntry, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.entries) == 0 {
		return models.WaitlistEntry{}, false, nil
	}
	return w.entries[0], true, nil
}

func (w *MemoryWaitlist) DequeueHead(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.entries) == 0 {
		return nil
	}
	w.entries = w.entries[1:]
	return nil
}

func (w *MemoryWaitlist) Len(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries), nil
}

func (w *MemoryWaitlist) Entries(ctx context.Context) ([]models.WaitlistEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.WaitlistEntry, len(w.entries))
	copy(out, w.entries)
	return out, nil
}
