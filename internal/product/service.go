package product

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/repository"
)

// Notifier hands a committed product mutation to asynchronous delivery.
type Notifier interface {
	Notify(kind domain.EventType, product domain.Product)
}

// Service is the interactive single-record path. Unlike the bulk path, a
// duplicate canonical SKU here is a rejected request, not an overwrite.
// Every successful mutation notifies exactly once, after the write commits.
type Service struct {
	repo     repository.ProductRepository
	notifier Notifier
}

// NewService creates the product service.
func NewService(repo repository.ProductRepository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreateInput carries the fields for a new product.
type CreateInput struct {
	Name        string
	SKU         string
	Description string
	Active      *bool
}

// Create stores a new product and emits product.created. Returns
// domain.ErrSKUConflict when the canonical SKU is already taken.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Product, error) {
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	created, err := s.repo.Create(ctx, domain.Product{
		Name:        input.Name,
		SKU:         input.SKU,
		Description: input.Description,
		Active:      active,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.notifier.Notify(domain.EventProductCreated, created)
	return created, nil
}

// UpdateInput carries the replacement fields for an existing product. A nil
// Active preserves the stored flag.
type UpdateInput struct {
	Name        string
	SKU         string
	Description string
	Active      *bool
}

// Update overwrites a product and emits product.updated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (domain.Product, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	current.Name = input.Name
	current.SKU = input.SKU
	current.Description = input.Description
	if input.Active != nil {
		current.Active = *input.Active
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return domain.Product{}, err
	}

	s.notifier.Notify(domain.EventProductUpdated, updated)
	return updated, nil
}

// Delete removes a product and emits product.deleted with the snapshot taken
// before deletion.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.notifier.Notify(domain.EventProductDeleted, snapshot)
	return nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns products matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.Product, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}
