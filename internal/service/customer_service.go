package service

import (
	"context"
	"fmt"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CustomerServiceImpl implements ports.CustomerService.
type CustomerServiceImpl struct {
	customerRepo ports.CustomerRepository
	emitter      ports.EventEmitter
	clock        ports.Clock
	log          zerolog.Logger
}

// NewCustomerService creates a CustomerServiceImpl.
func NewCustomerService(customerRepo ports.CustomerRepository, emitter ports.EventEmitter, clock ports.Clock, log zerolog.Logger) *CustomerServiceImpl {
	return &CustomerServiceImpl{customerRepo: customerRepo, emitter: emitter, clock: clock, log: log}
}

// Create inserts a customer and emits customer.created.
func (s *CustomerServiceImpl) Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	now := s.clock.Now()
	customer.ID = uuid.New()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create customer: %w", err))
	}
	s.emitter.Emit(ctx, customer.MerchantID, domain.EventCustomerCreated, customer)
	return customer, nil
}

// Get fetches one customer, merchant-scoped.
func (s *CustomerServiceImpl) Get(ctx context.Context, merchantID, id uuid.UUID) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get customer: %w", err))
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("customer")
	}
	return customer, nil
}

// Update applies a partial update and emits customer.updated.
func (s *CustomerServiceImpl) Update(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	existing, err := s.Get(ctx, customer.MerchantID, customer.ID)
	if err != nil {
		return nil, err
	}

	if customer.Email != nil {
		existing.Email = customer.Email
	}
	if customer.Name != nil {
		existing.Name = customer.Name
	}
	if customer.Phone != nil {
		existing.Phone = customer.Phone
	}
	if customer.Metadata != nil {
		existing.Metadata = customer.Metadata
	}
	existing.UpdatedAt = s.clock.Now()

	if err := s.customerRepo.Update(ctx, existing); err != nil {
		return nil, apperror.Internal(fmt.Errorf("update customer: %w", err))
	}
	s.emitter.Emit(ctx, existing.MerchantID, domain.EventCustomerUpdated, existing)
	return existing, nil
}

// Delete removes a customer and emits customer.deleted.
func (s *CustomerServiceImpl) Delete(ctx context.Context, merchantID, id uuid.UUID) error {
	deleted, err := s.customerRepo.Delete(ctx, merchantID, id)
	if err != nil {
		return apperror.Internal(fmt.Errorf("delete customer: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("customer")
	}
	s.emitter.Emit(ctx, merchantID, domain.EventCustomerDeleted, map[string]any{"id": id, "deleted": true})
	return nil
}

// List returns the merchant's customers, newest first, optionally filtered by
// a search query over email, name and phone.
func (s *CustomerServiceImpl) List(ctx context.Context, merchantID uuid.UUID, query string, limit, offset int) ([]domain.Customer, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, merchantID, query, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(fmt.Errorf("list customers: %w", err))
	}
	return customers, total, nil
}
