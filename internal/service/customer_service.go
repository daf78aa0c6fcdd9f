package service

import (
	"context"
	"strings"

	"stolik/internal/domain"
	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// CustomerService handles guest registration and lookups on top of the
// customer store.
type CustomerService struct {
	store  domain.CustomerStore
	logger *zerolog.Logger
}

func NewCustomerService(store domain.CustomerStore, logger *zerolog.Logger) *CustomerService {
	return &CustomerService{store: store, logger: logger}
}

// RegisterCustomer creates a new guest record with no table assignment.
func (s *CustomerService) RegisterCustomer(ctx context.Context, name string, requiredSeats int64) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCustomerName
	}
	if requiredSeats <= 0 {
		return nil, ErrInvalidPartySize
	}

	customer := &models.Customer{Name: name, RequiredSeats: requiredSeats}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("register customer failed")
		return nil, err
	}

	s.logger.Info().
		Int64("customer_id", customer.ID).
		Str("name", customer.Name).
		Int64("required_seats", customer.RequiredSeats).
		Msg("customer registered")
	return customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	return s.store.ListCustomers(ctx)
}
