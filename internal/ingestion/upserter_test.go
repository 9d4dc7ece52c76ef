package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
)

// stubProductRepo keeps products in memory keyed by canonical SKU and can be
// told to fail a specific batch to exercise the job failure path.
type stubProductRepo struct {
	mu          sync.Mutex
	store       map[string]domain.Product
	batches     int
	failOnBatch int
	bulkCreates int
	bulkUpdates int
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{store: make(map[string]domain.Product)}
}

func (s *stubProductRepo) seed(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.store[domain.CanonicalSKU(product.SKU)] = product
}

func (s *stubProductRepo) get(canonicalSKU string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.store[canonicalSKU]
	return product, ok
}

func (s *stubProductRepo) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store)
}

func (s *stubProductRepo) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.CanonicalSKU(product.SKU)
	if _, exists := s.store[key]; exists {
		return domain.Product{}, domain.ErrSKUConflict
	}
	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	s.store[key] = product
	return product, nil
}

func (s *stubProductRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, product := range s.store {
		if product.ID == id {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

func (s *stubProductRepo) List(ctx context.Context, filter domain.ProductFilter, limit int, offset int) ([]domain.Product, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (s *stubProductRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *stubProductRepo) FindExistingSKUs(ctx context.Context, canonicalSKUs []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.failOnBatch > 0 && s.batches == s.failOnBatch {
		return nil, errors.New("storage unavailable")
	}
	existing := make(map[string]struct{})
	for _, key := range canonicalSKUs {
		if _, ok := s.store[key]; ok {
			existing[key] = struct{}{}
		}
	}
	return existing, nil
}

func (s *stubProductRepo) BulkCreate(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCreates++
	created := make([]domain.Product, 0, len(products))
	for _, product := range products {
		product.ID = uuid.New()
		product.CreatedAt = time.Now()
		product.UpdatedAt = product.CreatedAt
		s.store[domain.CanonicalSKU(product.SKU)] = product
		created = append(created, product)
	}
	return created, nil
}

func (s *stubProductRepo) BulkUpdate(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkUpdates++
	updated := make([]domain.Product, 0, len(products))
	for _, product := range products {
		key := domain.CanonicalSKU(product.SKU)
		current, ok := s.store[key]
		if !ok {
			return nil, errors.New("bulk update for unknown SKU")
		}
		current.Name = product.Name
		current.SKU = product.SKU
		current.Description = product.Description
		current.UpdatedAt = time.Now()
		s.store[key] = current
		updated = append(updated, current)
	}
	return updated, nil
}

func TestUpserterLastOccurrenceWinsWithinBatch(t *testing.T) {
	repo := newStubProductRepo()
	upserter := NewUpserter(repo)

	batch := []Row{
		{Name: "Widget", SKU: "SKU-1", Description: "A widget"},
		{Name: "Gadget", SKU: "sku-1", Description: "A gadget"},
	}

	result, err := upserter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	if len(result.Created) != 1 || len(result.Updated) != 0 {
		t.Fatalf("expected 1 create and 0 updates, got %d/%d", len(result.Created), len(result.Updated))
	}
	if repo.size() != 1 {
		t.Fatalf("expected exactly one stored product, got %d", repo.size())
	}

	stored, ok := repo.get("sku-1")
	if !ok {
		t.Fatalf("expected product under canonical key sku-1")
	}
	if stored.Name != "Gadget" || stored.SKU != "sku-1" || stored.Description != "A gadget" {
		t.Fatalf("expected later row to win, got %+v", stored)
	}
}

func TestUpserterPartitionsCreateAndUpdateSets(t *testing.T) {
	repo := newStubProductRepo()
	repo.seed(domain.Product{Name: "Old Widget", SKU: "SKU-1", Active: true})
	upserter := NewUpserter(repo)

	batch := []Row{
		{Name: "New Widget", SKU: "sku-1", Description: "refreshed"},
		{Name: "Gadget", SKU: "SKU-2", Description: "brand new"},
	}

	result, err := upserter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	if len(result.Created) != 1 || len(result.Updated) != 1 {
		t.Fatalf("expected 1 create and 1 update, got %d/%d", len(result.Created), len(result.Updated))
	}
	if result.Created[0].SKU != "SKU-2" {
		t.Fatalf("expected SKU-2 in the create set, got %q", result.Created[0].SKU)
	}
	if result.Updated[0].Name != "New Widget" {
		t.Fatalf("expected update to overwrite name, got %q", result.Updated[0].Name)
	}

	// The update path rewrites the SKU to the incoming casing.
	stored, _ := repo.get("sku-1")
	if stored.SKU != "sku-1" {
		t.Fatalf("expected as-given casing sku-1, got %q", stored.SKU)
	}
}

func TestUpserterPreservesActiveFlagOnOverwrite(t *testing.T) {
	repo := newStubProductRepo()
	repo.seed(domain.Product{Name: "Retired", SKU: "SKU-1", Active: false})
	upserter := NewUpserter(repo)

	_, err := upserter.Apply(context.Background(), []Row{
		{Name: "Refreshed", SKU: "SKU-1", Description: "back in the file"},
	})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}

	stored, _ := repo.get("sku-1")
	if stored.Active {
		t.Fatalf("expected overwrite to preserve the deactivated flag")
	}
	if stored.Name != "Refreshed" {
		t.Fatalf("expected name to be overwritten, got %q", stored.Name)
	}
}

func TestUpserterIsIdempotent(t *testing.T) {
	repo := newStubProductRepo()
	upserter := NewUpserter(repo)

	batch := []Row{
		{Name: "Widget", SKU: "SKU-1", Description: "A widget"},
		{Name: "Gadget", SKU: "SKU-2", Description: "A gadget"},
	}

	first, err := upserter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("first apply returned error: %v", err)
	}
	if len(first.Created) != 2 || len(first.Updated) != 0 {
		t.Fatalf("expected first pass to create both rows, got %d/%d", len(first.Created), len(first.Updated))
	}

	second, err := upserter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("second apply returned error: %v", err)
	}
	if len(second.Created) != 0 || len(second.Updated) != 2 {
		t.Fatalf("expected second pass to resolve to updates, got %d/%d", len(second.Created), len(second.Updated))
	}
	if repo.size() != 2 {
		t.Fatalf("expected two stored products after reapply, got %d", repo.size())
	}
	if repo.bulkCreates != 2 || repo.bulkUpdates != 2 {
		t.Fatalf("expected one bulk write pair per apply, got %d/%d", repo.bulkCreates, repo.bulkUpdates)
	}
}

func TestUpserterEmptyBatchIsNoop(t *testing.T) {
	repo := newStubProductRepo()
	upserter := NewUpserter(repo)

	result, err := upserter.Apply(context.Background(), nil)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if len(result.Created) != 0 || len(result.Updated) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if repo.batches != 0 {
		t.Fatalf("expected no storage lookup for an empty batch")
	}
}
