package waitlist

import (
	"context"
	"testing"
	"time"

	"stolik/internal/domain"
	"stolik/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(customerID, seats int64) models.WaitlistEntry {
	return models.WaitlistEntry{
		CustomerID:    customerID,
		RequiredSeats: seats,
		EnqueuedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

// Both implementations must expose identical FIFO behavior.
func runWaitlistSuite(t *testing.T, w domain.Waitlist) {
	ctx := context.Background()

	t.Run("EmptyQueue", func(t *testing.T) {
		_, ok, err := w.PeekHead(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		// Dequeue on empty is a no-op.
		assert.NoError(t, w.DequeueHead(ctx))

		n, err := w.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("FIFOOrder", func(t *testing.T) {
		require.NoError(t, w.Enqueue(ctx, entry(1, 2)))
		require.NoError(t, w.Enqueue(ctx, entry(2, 4)))
		require.NoError(t, w.Enqueue(ctx, entry(3, 2)))

		head, ok, err := w.PeekHead(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(1), head.CustomerID)
		assert.Equal(t, int64(2), head.RequiredSeats)

		// Peek does not consume.
		head, ok, err = w.PeekHead(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(1), head.CustomerID)

		require.NoError(t, w.DequeueHead(ctx))
		head, ok, err = w.PeekHead(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(2), head.CustomerID)

		entries, err := w.Entries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(2), entries[0].CustomerID)
		assert.Equal(t, int64(3), entries[1].CustomerID)
	})

	t.Run("DuplicateEnqueueAllowed", func(t *testing.T) {
		// The queue itself does not deduplicate; uniqueness is the
		// coordinator's precondition check.
		require.NoError(t, w.Enqueue(ctx, entry(9, 2)))
		require.NoError(t, w.Enqueue(ctx, entry(9, 2)))

		entries, err := w.Entries(ctx)
		require.NoError(t, err)

		var dupes int
		for _, e := range entries {
			if e.CustomerID == 9 {
				dupes++
			}
		}
		assert.Equal(t, 2, dupes)
	})
}

func TestMemoryWaitlist(t *testing.T) {
	runWaitlistSuite(t, NewMemoryWaitlist())
}

func TestRedisWaitlist(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	runWaitlistSuite(t, NewRedisWaitlist(client))
}

func TestRedisWaitlistNilClient(t *testing.T) {
	ctx := context.Background()
	w := NewRedisWaitlist(nil)

	assert.Error(t, w.Enqueue(ctx, entry(1, 2)))
	_, _, err := w.PeekHead(ctx)
	assert.Error(t, err)
	assert.Error(t, w.DequeueHead(ctx))
	_, err = w.Len(ctx)
	assert.Error(t, err)
}
