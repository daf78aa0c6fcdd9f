package models

import "time"

// Table is one physical table of the seating plan. A table is booked
// exactly when BookedAt is non-zero.
type Table struct {
	ID       int64     `yaml:"id" json:"id"`
	Capacity int64     `yaml:"capacity" json:"capacity"`
	Booked   bool      `yaml:"-" json:"booked"`
	BookedAt time.Time `yaml:"-" json:"booked_at,omitzero"`
}
