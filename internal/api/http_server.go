package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stolik/internal/audit"
	"stolik/internal/config"
	"stolik/internal/database"
	"stolik/internal/domain"
	"stolik/internal/export"
	"stolik/internal/metrics"
	"stolik/internal/models"
	"stolik/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer is the presentation layer over the allocation service.
type HTTPServer struct {
	cfg       config.APIConfig
	server    *http.Server
	auth      *HTTPAuth
	alloc     domain.Allocator
	customers *service.CustomerService
	registry  domain.TableRegistry
	waitlist  domain.Waitlist
	recorder  *audit.Recorder
	exportDir string
	logger    *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	alloc domain.Allocator,
	customers *service.CustomerService,
	registry domain.TableRegistry,
	waitlist domain.Waitlist,
	recorder *audit.Recorder,
	exportDir string,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		alloc:     alloc,
		customers: customers,
		registry:  registry,
		waitlist:  waitlist,
		recorder:  recorder,
		exportDir: exportDir,
		logger:    logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/customers", srv.handleCustomers)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/checkin", srv.handleCheckIn)
	mux.HandleFunc("/api/v1/release", srv.handleRelease(models.TriggerManual))
	mux.HandleFunc("/api/v1/payments", srv.handleRelease(models.TriggerPayment))
	mux.HandleFunc("/api/v1/tables", srv.handleTables)
	mux.HandleFunc("/api/v1/tables/free", srv.handleFreeTables)
	mux.HandleFunc("/api/v1/waitlist", srv.handleWaitlist)
	mux.HandleFunc("/api/v1/events", srv.handleEvents)
	mux.HandleFunc("/api/v1/export", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the assembled handler chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.IncHTTP(r.URL.Path)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type registerRequest struct {
	Name          string `json:"name"`
	RequiredSeats int64  `json:"required_seats"`
}

func (s *HTTPServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		customer, err := s.customers.RegisterCustomer(r.Context(), req.Name, req.RequiredSeats)
		if errors.Is(err, service.ErrEmptyCustomerName) || errors.Is(err, service.ErrInvalidPartySize) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			s.internalError(w, err, "register customer")
			return
		}
		writeJSON(w, http.StatusCreated, customer)

	case http.MethodGet:
		customers, err := s.customers.ListCustomers(r.Context())
		if err != nil {
			s.internalError(w, err, "list customers")
			return
		}
		writeJSON(w, http.StatusOK, customers)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type bookingRequest struct {
	CustomerID    int64 `json:"customer_id"`
	RequiredSeats int64 `json:"required_seats"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.alloc.RequestBooking(r.Context(), req.CustomerID, req.RequiredSeats)
	switch {
	case errors.Is(err, service.ErrInvalidPartySize):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, "you already have a table reserved")
	case errors.Is(err, database.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer not found")
	case err != nil:
		s.internalError(w, err, "request booking")
	default:
		writeJSON(w, http.StatusOK, outcome)
	}
}

type checkInRequest struct {
	CustomerID int64 `json:"customer_id"`
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.alloc.CheckIn(r.Context(), req.CustomerID)
	switch {
	case errors.Is(err, service.ErrNoBooking):
		writeError(w, http.StatusNotFound, "no booking found, please book a table first")
	case errors.Is(err, database.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer not found")
	case err != nil:
		s.internalError(w, err, "check in")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "checked_in"})
	}
}

type releaseRequest struct {
	TableID int64 `json:"table_id"`
}

func (s *HTTPServer) handleRelease(trigger string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req releaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := s.alloc.ReleaseTable(r.Context(), req.TableID, trigger)
		switch {
		case errors.Is(err, service.ErrUnknownTable):
			writeError(w, http.StatusNotFound, "unknown table")
		case err != nil:
			s.internalError(w, err, "release table")
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
		}
	}
}

func (s *HTTPServer) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.ListAll())
}

func (s *HTTPServer) handleFreeTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.ListFree())
}

func (s *HTTPServer) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.waitlist.Entries(r.Context())
	if err != nil {
		s.internalError(w, err, "list waitlist")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.recorder.Recent())
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.waitlist.Entries(r.Context())
	if err != nil {
		s.internalError(w, err, "export: list waitlist")
		return
	}

	path, err := export.WriteFloorState(s.exportDir, s.registry.ListAll(), entries, s.recorder.Recent())
	if err != nil {
		s.internalError(w, err, "export: write workbook")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
