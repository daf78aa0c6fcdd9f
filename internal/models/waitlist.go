package models

import "time"

// WaitlistEntry is one queued party, ordered strictly by arrival.
type WaitlistEntry struct {
	CustomerID    int64     `json:"customer_id"`
	RequiredSeats int64     `json:"required_seats"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// BookingOutcome is the user-visible result of a booking request.
type BookingOutcome struct {
	Status  string `json:"status"` // booked, waitlisted
	TableID int64  `json:"table_id,omitempty"`
	Ref     string `json:"ref,omitempty"`
}
