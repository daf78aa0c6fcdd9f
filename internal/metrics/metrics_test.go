package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncBooking("booked")
		IncBooking("waitlisted")
		IncRelease("manual")
		IncReclaim()
		IncDrainMatch()
		SetWaitlistDepth(3)
		IncHTTP("test_endpoint")
	})
}
