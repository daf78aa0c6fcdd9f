package registry

import (
	"sort"
	"sync"
	"time"

	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// Registry keeps the seating plan in memory. The plan is static: tables
// are provisioned at construction and only flip between free and booked.
type Registry struct {
	mu     sync.RWMutex
	tables map[int64]*models.Table
	ids    []int64
	logger *zerolog.Logger
}

// New builds a registry from the seating plan. All tables start free
// regardless of the flags on the incoming plan entries.
func New(plan []models.Table, logger *zerolog.Logger) *Registry {
	r := &Registry{
		tables: make(map[int64]*models.Table, len(plan)),
		logger: logger,
	}
	for _, t := range plan {
		table := models.Table{ID: t.ID, Capacity: t.Capacity}
		r.tables[t.ID] = &table
		r.ids = append(r.ids, t.ID)
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })
	return r
}

// FindBestFit returns the free table with the smallest capacity that
// still seats requiredSeats; ties go to the lowest table id. Read-only.
func (r *Registry) FindBestFit(requiredSeats int64) (models.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *models.Table
	for _, id := range r.ids {
		t := r.tables[id]
		if t.Booked || t.Capacity < requiredSeats {
			continue
		}
		if best == nil || t.Capacity < best.Capacity {
			best = t
		}
	}
	if best == nil {
		return models.Table{}, false
	}
	return *best, true
}

// MarkBooked flips a table from free to booked and stamps the time.
// Returns false without touching state when the table is unknown or
// already booked; callers treat that as a lost race, not an error.
func (r *Registry) MarkBooked(tableID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[tableID]
	if !ok || t.Booked {
		return false
	}
	t.Booked = true
	t.BookedAt = time.Now()
	return true
}

// MarkFree flips a table back to free and clears the timestamp. Freeing
// an already-free table is a no-op success; release paths may race.
func (r *Registry) MarkFree(tableID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[tableID]
	if !ok {
		if r.logger != nil {
			r.logger.Warn().Int64("table_id", tableID).Msg("mark free on unknown table")
		}
		return false
	}
	t.Booked = false
	t.BookedAt = time.Time{}
	return true
}

// ListFree returns a snapshot of free tables ordered by id.
func (r *Registry) ListFree() []models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Table
	for _, id := range r.ids {
		if t := r.tables[id]; !t.Booked {
			out = append(out, *t)
		}
	}
	return out
}

// ListAll returns a snapshot of the whole seating plan ordered by id.
func (r *Registry) ListAll() []models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Table, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, *r.tables[id])
	}
	return out
}
