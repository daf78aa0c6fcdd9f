package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stolik/internal/audit"
	"stolik/internal/config"
	"stolik/internal/database"
	"stolik/internal/events"
	"stolik/internal/models"
	"stolik/internal/registry"
	"stolik/internal/service"
	"stolik/internal/waitlist"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPIConfig(authEnabled bool) config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Port:    0,
		Auth: config.APIAuthConfig{
			Enabled:      authEnabled,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "test-key", Name: "tester"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
	}
}

func newTestServer(t *testing.T, authEnabled bool) *HTTPServer {
	t.Helper()

	logger := zerolog.Nop()
	store := database.NewMemoryStore()
	reg := registry.New([]models.Table{
		{ID: 1, Capacity: 2},
		{ID: 2, Capacity: 4},
	}, &logger)
	queue := waitlist.NewMemoryWaitlist()
	bus := events.NewEventBus()

	alloc := service.NewAllocationService(reg, queue, store, bus, models.DefaultGracePeriod, &logger)
	t.Cleanup(alloc.Stop)

	customers := service.NewCustomerService(store, &logger)

	recorder := audit.NewRecorder(16, &logger)
	recorder.Attach(bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	recorder.Start(ctx)

	return NewHTTPServer(testAPIConfig(authEnabled), alloc, customers, reg, queue, recorder, t.TempDir(), &logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerTestCustomer(t *testing.T, handler http.Handler, name string, seats int64) int64 {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/customers", registerRequest{Name: name, RequiredSeats: seats}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var customer models.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &customer))
	return customer.ID
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	srv := newTestServer(t, true)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/tables", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tables", nil, map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tables", nil, map[string]string{"x-api-key": "test-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterCustomerValidation(t *testing.T) {
	srv := newTestServer(t, false)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/customers", registerRequest{Name: "  ", RequiredSeats: 2}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/customers", registerRequest{Name: "Anna", RequiredSeats: 0}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)
	handler := srv.Handler()

	annaID := registerTestCustomer(t, handler, "Anna", 3)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: annaID, RequiredSeats: 3}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome models.BookingOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, models.OutcomeBooked, outcome.Status)
	assert.Equal(t, int64(2), outcome.TableID)
	assert.NotEmpty(t, outcome.Ref)

	// second booking for the same customer is rejected
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: annaID, RequiredSeats: 2}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkin", checkInRequest{CustomerID: annaID}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tables/free", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var free []models.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &free))
	require.Len(t, free, 1)
	assert.Equal(t, int64(1), free[0].ID)
}

func TestBookingUnknownCustomer(t *testing.T) {
	srv := newTestServer(t, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: 999, RequiredSeats: 2}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWaitlistAndReleaseOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)
	handler := srv.Handler()

	annaID := registerTestCustomer(t, handler, "Anna", 4)
	borisID := registerTestCustomer(t, handler, "Boris", 4)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: annaID, RequiredSeats: 4}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: borisID, RequiredSeats: 4}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome models.BookingOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, models.OutcomeWaitlisted, outcome.Status)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/waitlist", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.WaitlistEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, borisID, entries[0].CustomerID)

	// payment release frees table 2 and seats Boris
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/payments", releaseRequest{TableID: 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/waitlist", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestReleaseUnknownTableOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/release", releaseRequest{TableID: 99}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, false)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/bookings", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tables", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExportDownload(t *testing.T) {
	srv := newTestServer(t, false)
	handler := srv.Handler()

	annaID := registerTestCustomer(t, handler, "Anna", 2)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings", bookingRequest{CustomerID: annaID, RequiredSeats: 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/export", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestRateLimitExceeded(t *testing.T) {
	srv := newTestServer(t, false)
	cfg := testAPIConfig(false)
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	srv.auth = NewHTTPAuth(cfg)
	handler := srv.loggingMiddleware(srv.auth.Wrap(http.NotFoundHandler()))

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/tables", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tables", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
