package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"stolik/internal/events"
	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// Record is one allocation event kept for auditing.
type Record struct {
	Type    string                        `json:"type"`
	Payload events.AllocationEventPayload `json:"payload"`
	At      time.Time                     `json:"at"`
}

// Recorder consumes allocation events off the bus and keeps the most
// recent ones in a bounded buffer for the export and events endpoints.
// Bus handlers only enqueue; a single goroutine owns the buffer.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	max     int
	queue   chan Record
	done    chan struct{}
	logger  *zerolog.Logger
}

func NewRecorder(max int, logger *zerolog.Logger) *Recorder {
	if max <= 0 {
		max = models.DefaultAuditBufferSize
	}
	return &Recorder{
		max:    max,
		queue:  make(chan Record, max),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Attach subscribes the recorder to every allocation event type.
func (r *Recorder) Attach(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventCustomerWaitlisted,
		events.EventCustomerCheckedIn,
		events.EventTableReleased,
		events.EventTimeoutReclaimed,
		events.EventWaitlistMatched,
	} {
		bus.Subscribe(eventType, r.handle)
	}
}

// Start launches the consumer loop; it exits when ctx is done.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case record := <-r.queue:
				r.append(record)
			}
		}
	}()
}

// Wait blocks until the consumer loop has exited.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) handle(event *events.Event) error {
	var payload events.AllocationEventPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			r.logger.Error().Err(err).Str("event_type", event.Type).Msg("audit: decode payload failed")
			return err
		}
	}

	record := Record{Type: event.Type, Payload: payload, At: event.CreatedAt}
	select {
	case r.queue <- record:
	default:
		// Buffer full; auditing is best effort, bookings must not block.
		r.logger.Warn().Str("event_type", event.Type).Msg("audit: queue full, dropping record")
	}
	return nil
}

func (r *Recorder) append(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if len(r.records) > r.max {
		r.records = r.records[len(r.records)-r.max:]
	}
}

// Recent returns the buffered records, oldest first.
func (r *Recorder) Recent() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
