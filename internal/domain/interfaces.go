package domain

import (
	"context"

	"stolik/internal/models"
)

// TableRegistry is the authoritative record of physical tables. All
// mutations go through the allocation service, which serializes the
// check-then-act sequences around it.
type TableRegistry interface {
	FindBestFit(requiredSeats int64) (models.Table, bool)
	MarkBooked(tableID int64) bool
	MarkFree(tableID int64) bool
	ListFree() []models.Table
	ListAll() []models.Table
}

// Waitlist holds parties waiting for a table in strict arrival order.
// The queue does not deduplicate entries; the allocation service's
// already-has-a-table check is the uniqueness gate.
type Waitlist interface {
	Enqueue(ctx context.Context, entry models.WaitlistEntry) error
	PeekHead(ctx context.Context) (models.WaitlistEntry, bool, error)
	DequeueHead(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Entries(ctx context.Context) ([]models.WaitlistEntry, error)
}

// CustomerStore persists the booking-relevant customer projection.
// Reads must observe the store's own prior writes within a booking flow.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByTable(ctx context.Context, tableID int64) (*models.Customer, error)
	GetAssignedTable(ctx context.Context, customerID int64) (*int64, error)
	SetAssignedTable(ctx context.Context, customerID int64, tableID *int64) error
	SetCheckedIn(ctx context.Context, customerID int64, checkedIn bool) error
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
}

// EventPublisher publishes allocation events for observers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReservationMonitor watches pending check-ins and reclaims tables whose
// customers never arrived within the grace period.
type ReservationMonitor interface {
	Schedule(customerID, tableID int64)
	Cancel(customerID int64) bool
	Stop()
}

// Allocator is the coordinator for bookings, releases and waitlist drain.
type Allocator interface {
	RequestBooking(ctx context.Context, customerID, requiredSeats int64) (models.BookingOutcome, error)
	CheckIn(ctx context.Context, customerID int64) error
	ReleaseTable(ctx context.Context, tableID int64, trigger string) error
}
