package monitor

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"stolik/internal/database"
	"stolik/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookedCustomer(t *testing.T, store *database.MemoryStore, tableID int64) *models.Customer {
	t.Helper()
	ctx := context.Background()
	customer := &models.Customer{Name: "Guest", RequiredSeats: 2}
	require.NoError(t, store.CreateCustomer(ctx, customer))
	require.NoError(t, store.SetAssignedTable(ctx, customer.ID, &tableID))
	return customer
}

func TestSchedulerReclaimsWhenNotCheckedIn(t *testing.T) {
	store := database.NewMemoryStore()
	customer := newBookedCustomer(t, store, 3)

	var reclaimed atomic.Int64
	logger := zerolog.New(io.Discard)
	s := NewScheduler(10*time.Millisecond, store, func(ctx context.Context, customerID, tableID int64) {
		reclaimed.Store(customerID*100 + tableID)
	}, &logger)
	defer s.Stop()

	s.Schedule(customer.ID, 3)

	assert.Eventually(t, func() bool {
		return reclaimed.Load() == customer.ID*100+3
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerNoOpWhenCheckedIn(t *testing.T) {
	store := database.NewMemoryStore()
	customer := newBookedCustomer(t, store, 1)
	require.NoError(t, store.SetCheckedIn(context.Background(), customer.ID, true))

	var reclaims atomic.Int32
	logger := zerolog.New(io.Discard)
	s := NewScheduler(10*time.Millisecond, store, func(ctx context.Context, customerID, tableID int64) {
		reclaims.Add(1)
	}, &logger)
	defer s.Stop()

	s.Schedule(customer.ID, 1)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reclaims.Load())
}

func TestSchedulerCancelPreventsReclaim(t *testing.T) {
	store := database.NewMemoryStore()
	customer := newBookedCustomer(t, store, 2)

	var reclaims atomic.Int32
	logger := zerolog.New(io.Discard)
	s := NewScheduler(30*time.Millisecond, store, func(ctx context.Context, customerID, tableID int64) {
		reclaims.Add(1)
	}, &logger)
	defer s.Stop()

	s.Schedule(customer.ID, 2)
	assert.True(t, s.Cancel(customer.ID))
	// Cancel of a customer without a pending timer.
	assert.False(t, s.Cancel(customer.ID))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, reclaims.Load())
}

func TestSchedulerSkipsStaleBooking(t *testing.T) {
	store := database.NewMemoryStore()
	customer := newBookedCustomer(t, store, 4)

	var reclaims atomic.Int32
	logger := zerolog.New(io.Discard)
	s := NewScheduler(10*time.Millisecond, store, func(ctx context.Context, customerID, tableID int64) {
		reclaims.Add(1)
	}, &logger)
	defer s.Stop()

	s.Schedule(customer.ID, 4)

	// The booking moves to another table before the timer fires; the old
	// watchdog must not reclaim the new table.
	newTable := int64(9)
	require.NoError(t, store.SetAssignedTable(context.Background(), customer.ID, &newTable))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reclaims.Load())
}

func TestSchedulerStopRejectsNewTimers(t *testing.T) {
	store := database.NewMemoryStore()
	customer := newBookedCustomer(t, store, 1)

	var reclaims atomic.Int32
	logger := zerolog.New(io.Discard)
	s := NewScheduler(10*time.Millisecond, store, func(ctx context.Context, customerID, tableID int64) {
		reclaims.Add(1)
	}, &logger)

	s.Stop()
	s.Schedule(customer.ID, 1)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reclaims.Load())
}
