package monitor

import (
	"context"
	"sync"
	"time"

	"stolik/internal/domain"

	"github.com/rs/zerolog"
)

// ReclaimFunc is invoked when a booking's grace period expires and the
// customer never checked in.
type ReclaimFunc func(ctx context.Context, customerID, tableID int64)

// Scheduler runs one cancellable timer per pending check-in, keyed by
// customer id. When a timer fires it re-reads the checked-in flag and
// either reclaims the table or exits without side effect.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	grace   time.Duration
	store   domain.CustomerStore
	reclaim ReclaimFunc
	logger  *zerolog.Logger
	stopped bool
}

func NewScheduler(grace time.Duration, store domain.CustomerStore, reclaim ReclaimFunc, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		timers:  make(map[int64]*time.Timer),
		grace:   grace,
		store:   store,
		reclaim: reclaim,
		logger:  logger,
	}
}

// Schedule starts the grace-period watchdog for a booking. A previous
// timer for the same customer is replaced.
func (s *Scheduler) Schedule(customerID, tableID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if prev, ok := s.timers[customerID]; ok {
		prev.Stop()
	}
	s.timers[customerID] = time.AfterFunc(s.grace, func() {
		s.expire(customerID, tableID)
	})
}

// Cancel stops the customer's watchdog, typically on check-in or
// release. Returns false when no timer was pending.
func (s *Scheduler) Cancel(customerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[customerID]
	if !ok {
		return false
	}
	delete(s.timers, customerID)
	timer.Stop()
	return true
}

// Stop cancels all pending watchdogs and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) expire(customerID, tableID int64) {
	s.mu.Lock()
	delete(s.timers, customerID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("watchdog: load customer failed")
		return
	}
	if customer.TableID == nil || *customer.TableID != tableID {
		// The booking was already released or moved elsewhere.
		return
	}
	if customer.CheckedIn {
		s.logger.Debug().
			Int64("customer_id", customerID).
			Int64("table_id", tableID).
			Msg("watchdog: customer checked in, nothing to reclaim")
		return
	}

	s.logger.Warn().
		Int64("customer_id", customerID).
		Int64("table_id", tableID).
		Dur("grace", s.grace).
		Msg("customer not checked in within grace period, reclaiming table")

	s.reclaim(ctx, customerID, tableID)
}
