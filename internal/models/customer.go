package models

import "time"

// Customer is the booking-relevant projection of a guest. TableID is nil
// while the customer has no table; CheckedIn is meaningful only when a
// table is assigned and must be false whenever TableID is nil.
type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TableID       *int64    `json:"table_id,omitempty"`
	CheckedIn     bool      `json:"checked_in"`
	RequiredSeats int64     `json:"required_seats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
