package export

import (
	"os"
	"testing"
	"time"

	"stolik/internal/audit"
	"stolik/internal/events"
	"stolik/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteFloorState(t *testing.T) {
	dir := t.TempDir()

	tables := []models.Table{
		{ID: 1, Capacity: 2},
		{ID: 2, Capacity: 4, Booked: true, BookedAt: time.Now()},
	}
	entries := []models.WaitlistEntry{
		{CustomerID: 7, RequiredSeats: 4, EnqueuedAt: time.Now()},
	}
	records := []audit.Record{
		{
			Type:    events.EventBookingCreated,
			Payload: events.AllocationEventPayload{CustomerID: 3, TableID: 2, RequiredSeats: 4},
			At:      time.Now(),
		},
	}

	path, err := WriteFloorState(dir, tables, entries, records)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	status, err := f.GetCellValue("Tables", "C2")
	require.NoError(t, err)
	assert.Equal(t, "free", status)

	status, err = f.GetCellValue("Tables", "C3")
	require.NoError(t, err)
	assert.Equal(t, "booked", status)

	customer, err := f.GetCellValue("Waitlist", "B2")
	require.NoError(t, err)
	assert.Equal(t, "7", customer)

	eventType, err := f.GetCellValue("Events", "B2")
	require.NoError(t, err)
	assert.Equal(t, events.EventBookingCreated, eventType)
}

func TestWriteFloorStateEmpty(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFloorState(dir, nil, nil, nil)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
