package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/metrics"
	"stolik/internal/models"
	"stolik/internal/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyBooked rejects a booking request from a customer who
	// already holds a table.
	ErrAlreadyBooked = errors.New("customer already has a table reserved")

	// ErrNoBooking is returned on check-in without a booking.
	ErrNoBooking = errors.New("no booking found for customer")

	// ErrBookingFailed covers the transient internal failure where a
	// found table could not be claimed. Not retried automatically.
	ErrBookingFailed = errors.New("booking failed due to internal problem")

	// ErrUnknownTable is returned when releasing a table id that is not
	// part of the seating plan.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidPartySize rejects non-positive seat counts.
	ErrInvalidPartySize = errors.New("party size must be positive")

	// ErrEmptyCustomerName rejects registration without a name.
	ErrEmptyCustomerName = errors.New("customer name is required")
)

// AllocationService coordinates bookings, releases and waitlist drain.
// A single mutex makes each booking/release/drain appear atomic to every
// other concurrent caller; the registry and the waitlist are only ever
// mutated from inside that critical section.
type AllocationService struct {
	mu       sync.Mutex
	registry domain.TableRegistry
	waitlist domain.Waitlist
	store    domain.CustomerStore
	eventBus domain.EventPublisher
	monitor  domain.ReservationMonitor
	logger   *zerolog.Logger
}

func NewAllocationService(
	registry domain.TableRegistry,
	waitlist domain.Waitlist,
	store domain.CustomerStore,
	eventBus domain.EventPublisher,
	gracePeriod time.Duration,
	logger *zerolog.Logger,
) *AllocationService {
	if gracePeriod <= 0 {
		gracePeriod = models.DefaultGracePeriod
	}
	s := &AllocationService{
		registry: registry,
		waitlist: waitlist,
		store:    store,
		eventBus: eventBus,
		logger:   logger,
	}
	s.monitor = monitor.NewScheduler(gracePeriod, store, s.reclaimExpired, logger)
	return s
}

// Stop cancels all pending reservation watchdogs.
func (s *AllocationService) Stop() {
	s.monitor.Stop()
}

// RequestBooking finds the best-fitting free table for the party, or
// puts the customer on the waitlist when nothing fits.
func (s *AllocationService) RequestBooking(ctx context.Context, customerID, requiredSeats int64) (models.BookingOutcome, error) {
	if requiredSeats <= 0 {
		return models.BookingOutcome{}, ErrInvalidPartySize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assigned, err := s.store.GetAssignedTable(ctx, customerID)
	if err != nil {
		return models.BookingOutcome{}, fmt.Errorf("check existing booking: %w", err)
	}
	if assigned != nil {
		s.logger.Warn().
			Int64("customer_id", customerID).
			Int64("table_id", *assigned).
			Msg("booking rejected, customer already holds a table")
		return models.BookingOutcome{}, ErrAlreadyBooked
	}

	table, ok := s.registry.FindBestFit(requiredSeats)
	if !ok {
		entry := models.WaitlistEntry{
			CustomerID:    customerID,
			RequiredSeats: requiredSeats,
			EnqueuedAt:    time.Now(),
		}
		if err := s.waitlist.Enqueue(ctx, entry); err != nil {
			return models.BookingOutcome{}, fmt.Errorf("enqueue customer %d: %w", customerID, err)
		}
		s.updateWaitlistDepth(ctx)
		metrics.IncBooking(models.OutcomeWaitlisted)
		s.publish(events.EventCustomerWaitlisted, events.AllocationEventPayload{
			CustomerID:    customerID,
			RequiredSeats: requiredSeats,
			OccurredAt:    time.Now(),
		})
		s.logger.Info().
			Int64("customer_id", customerID).
			Int64("required_seats", requiredSeats).
			Msg("no table available, customer waitlisted")
		return models.BookingOutcome{Status: models.OutcomeWaitlisted}, nil
	}

	ref, err := s.bookLocked(ctx, customerID, requiredSeats, table)
	if err != nil {
		return models.BookingOutcome{}, err
	}
	return models.BookingOutcome{Status: models.OutcomeBooked, TableID: ref.tableID, Ref: ref.ref}, nil
}

// CheckIn confirms the customer's arrival and disarms their watchdog.
func (s *AllocationService) CheckIn(ctx context.Context, customerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned, err := s.store.GetAssignedTable(ctx, customerID)
	if err != nil {
		return fmt.Errorf("check booking for customer %d: %w", customerID, err)
	}
	if assigned == nil {
		return ErrNoBooking
	}

	if err := s.store.SetCheckedIn(ctx, customerID, true); err != nil {
		return fmt.Errorf("check in customer %d: %w", customerID, err)
	}
	s.monitor.Cancel(customerID)

	s.publish(events.EventCustomerCheckedIn, events.AllocationEventPayload{
		CustomerID: customerID,
		TableID:    *assigned,
		OccurredAt: time.Now(),
	})
	s.logger.Info().
		Int64("customer_id", customerID).
		Int64("table_id", *assigned).
		Msg("customer checked in")
	return nil
}

// ReleaseTable frees a table (manual action, payment completion or a
// watchdog reclaim) and immediately tries to drain the waitlist into it.
func (s *AllocationService) ReleaseTable(ctx context.Context, tableID int64, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(ctx, tableID, trigger)
}

func (s *AllocationService) releaseLocked(ctx context.Context, tableID int64, trigger string) error {
	occupant, err := s.store.GetCustomerByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("find occupant of table %d: %w", tableID, err)
	}

	if !s.registry.MarkFree(tableID) {
		return ErrUnknownTable
	}

	var customerID int64
	if occupant != nil {
		customerID = occupant.ID
		s.monitor.Cancel(occupant.ID)
		if err := s.store.SetAssignedTable(ctx, occupant.ID, nil); err != nil {
			return fmt.Errorf("clear assignment of customer %d: %w", occupant.ID, err)
		}
	}

	metrics.IncRelease(trigger)
	s.publish(events.EventTableReleased, events.AllocationEventPayload{
		CustomerID: customerID,
		TableID:    tableID,
		Trigger:    trigger,
		OccurredAt: time.Now(),
	})
	s.logger.Info().
		Int64("table_id", tableID).
		Int64("customer_id", customerID).
		Str("trigger", trigger).
		Msg("table released")

	s.drainLocked(ctx)
	return nil
}

// drainLocked matches the waitlist head against the freed capacity.
// Strict FIFO: when the head does not fit, nobody behind it is tried.
func (s *AllocationService) drainLocked(ctx context.Context) {
	for {
		head, ok, err := s.waitlist.PeekHead(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("drain: peek waitlist head failed")
			return
		}
		if !ok {
			return
		}

		table, fit := s.registry.FindBestFit(head.RequiredSeats)
		if !fit {
			return
		}

		ref, err := s.bookLocked(ctx, head.CustomerID, head.RequiredSeats, table)
		if err != nil {
			s.logger.Error().Err(err).
				Int64("customer_id", head.CustomerID).
				Msg("drain: booking for waitlisted customer failed")
			return
		}
		if err := s.waitlist.DequeueHead(ctx); err != nil {
			s.logger.Error().Err(err).Msg("drain: dequeue waitlist head failed")
			return
		}
		s.updateWaitlistDepth(ctx)

		metrics.IncDrainMatch()
		s.publish(events.EventWaitlistMatched, events.AllocationEventPayload{
			Ref:           ref.ref,
			CustomerID:    head.CustomerID,
			TableID:       ref.tableID,
			RequiredSeats: head.RequiredSeats,
			OccurredAt:    time.Now(),
		})
		s.logger.Info().
			Int64("customer_id", head.CustomerID).
			Int64("table_id", ref.tableID).
			Int64("required_seats", head.RequiredSeats).
			Msg("waitlisted customer matched to freed table")
	}
}

type bookingRef struct {
	ref     string
	tableID int64
}

// bookLocked claims the table, links the customer and arms the
// watchdog. Caller holds the mutex and has already found a candidate.
func (s *AllocationService) bookLocked(ctx context.Context, customerID, requiredSeats int64, table models.Table) (bookingRef, error) {
	if !s.registry.MarkBooked(table.ID) {
		// Lost the table to a concurrent path; one more best-fit pass.
		retry, ok := s.registry.FindBestFit(requiredSeats)
		if !ok || !s.registry.MarkBooked(retry.ID) {
			return bookingRef{}, ErrBookingFailed
		}
		table = retry
	}

	if err := s.store.SetAssignedTable(ctx, customerID, &table.ID); err != nil {
		// Never leave a booked table with no linked customer.
		s.registry.MarkFree(table.ID)
		return bookingRef{}, fmt.Errorf("link customer %d to table %d: %w", customerID, table.ID, err)
	}

	s.monitor.Schedule(customerID, table.ID)

	ref := uuid.NewString()
	metrics.IncBooking(models.OutcomeBooked)
	s.publish(events.EventBookingCreated, events.AllocationEventPayload{
		Ref:           ref,
		CustomerID:    customerID,
		TableID:       table.ID,
		RequiredSeats: requiredSeats,
		OccurredAt:    time.Now(),
	})
	s.logger.Info().
		Str("ref", ref).
		Int64("customer_id", customerID).
		Int64("table_id", table.ID).
		Int64("required_seats", requiredSeats).
		Msg("table booked")

	return bookingRef{ref: ref, tableID: table.ID}, nil
}

// reclaimExpired is the watchdog callback. It re-checks the booking
// under the coordinator lock before releasing anything, so a last-moment
// check-in wins over a firing timer.
func (s *AllocationService) reclaimExpired(ctx context.Context, customerID, tableID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("reclaim: load customer failed")
		return
	}
	if customer.TableID == nil || *customer.TableID != tableID || customer.CheckedIn {
		return
	}

	metrics.IncReclaim()
	s.publish(events.EventTimeoutReclaimed, events.AllocationEventPayload{
		CustomerID: customerID,
		TableID:    tableID,
		Trigger:    models.TriggerTimeout,
		OccurredAt: time.Now(),
	})
	s.logger.Warn().
		Int64("customer_id", customerID).
		Int64("table_id", tableID).
		Msg("reclaiming table from customer who never checked in")

	if err := s.releaseLocked(ctx, tableID, models.TriggerTimeout); err != nil {
		s.logger.Error().Err(err).Int64("table_id", tableID).Msg("reclaim: release failed")
	}
}

func (s *AllocationService) updateWaitlistDepth(ctx context.Context) {
	n, err := s.waitlist.Len(ctx)
	if err != nil {
		return
	}
	metrics.SetWaitlistDepth(n)
}

func (s *AllocationService) publish(eventType string, payload events.AllocationEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
