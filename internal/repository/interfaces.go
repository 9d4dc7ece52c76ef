package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
)

// ProductRepository defines the storage contract shared by the interactive
// CRUD path and the bulk ingestion path. Both rely on the database enforcing
// canonical-SKU uniqueness.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, limit int, offset int) ([]domain.Product, int, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FindExistingSKUs resolves which of the given canonical SKUs are already
	// stored, in a single lookup.
	FindExistingSKUs(ctx context.Context, canonicalSKUs []string) (map[string]struct{}, error)

	// BulkCreate inserts a batch of new products in one statement. A
	// concurrent interactive writer may have claimed a SKU between the
	// membership lookup and the write; such rows are overwritten rather than
	// rejected. Returns the written rows.
	BulkCreate(ctx context.Context, products []domain.Product) ([]domain.Product, error)

	// BulkUpdate overwrites existing products matched on the canonical SKU in
	// one statement, rewriting name, SKU casing and description while leaving
	// the activation flag untouched. Returns the written rows.
	BulkUpdate(ctx context.Context, products []domain.Product) ([]domain.Product, error)
}

// ImportJobRepository persists ingestion run lifecycle records. Status
// transition guards live in the SQL so an out-of-order write can never move a
// job backwards.
type ImportJobRepository interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error)
	SetProcessing(ctx context.Context, id uuid.UUID) error
	SetTotals(ctx context.Context, id uuid.UUID, totalRows int, skippedRows int) error
	IncrementProcessed(ctx context.Context, id uuid.UUID, delta int) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

// WebhookRepository manages webhook registrations. The dispatcher only reads
// through ListEnabledByEvent.
type WebhookRepository interface {
	Create(ctx context.Context, webhook domain.Webhook) (domain.Webhook, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Webhook, error)
	List(ctx context.Context, enabled *bool) ([]domain.Webhook, error)
	Update(ctx context.Context, webhook domain.Webhook) (domain.Webhook, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListEnabledByEvent(ctx context.Context, kind domain.EventType) ([]domain.Webhook, error)
}
