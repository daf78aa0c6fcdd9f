package models

import "time"

const (
	OutcomeBooked     = "booked"
	OutcomeWaitlisted = "waitlisted"
)

const (
	TriggerManual  = "manual"
	TriggerPayment = "payment"
	TriggerTimeout = "timeout"
)

const (
	// DefaultGracePeriod is how long a customer has to check in before
	// the reservation monitor reclaims the table.
	DefaultGracePeriod = 20 * time.Minute

	// DefaultAuditBufferSize is how many allocation events the audit
	// recorder keeps for the export and events endpoints.
	DefaultAuditBufferSize = 256

	// Default API rate limit.
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 5
)
