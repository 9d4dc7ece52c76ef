package ingestion

import (
	"context"
	"fmt"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/repository"
)

// BatchResult reports what one applied batch wrote to storage.
type BatchResult struct {
	Created []domain.Product
	Updated []domain.Product
}

// Upserter applies fixed-size batches of decoded rows as bulk
// create-or-overwrite writes.
type Upserter struct {
	products repository.ProductRepository
}

// NewUpserter creates a batch upserter on top of the product repository.
func NewUpserter(products repository.ProductRepository) *Upserter {
	return &Upserter{products: products}
}

// Apply processes one batch: dedups rows sharing a canonical SKU
// (last occurrence wins), resolves which canonical SKUs already exist in one
// lookup, partitions the batch into a create set and an update set, and
// issues one bulk write per set. A storage failure here is fatal for the
// whole job; batches already applied stay committed.
func (u *Upserter) Apply(ctx context.Context, rows []Row) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, nil
	}

	order := make([]string, 0, len(rows))
	winners := make(map[string]Row, len(rows))
	for _, row := range rows {
		key := domain.CanonicalSKU(row.SKU)
		if _, seen := winners[key]; !seen {
			order = append(order, key)
		}
		winners[key] = row
	}

	existing, err := u.products.FindExistingSKUs(ctx, order)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to resolve batch against storage: %w", err)
	}

	createSet := make([]domain.Product, 0, len(order))
	updateSet := make([]domain.Product, 0, len(order))
	for _, key := range order {
		row := winners[key]
		product := domain.Product{
			Name:        row.Name,
			SKU:         row.SKU,
			Description: row.Description,
			Active:      true,
		}
		if _, ok := existing[key]; ok {
			updateSet = append(updateSet, product)
		} else {
			createSet = append(createSet, product)
		}
	}

	var result BatchResult
	if result.Created, err = u.products.BulkCreate(ctx, createSet); err != nil {
		return BatchResult{}, fmt.Errorf("batch create failed: %w", err)
	}
	if result.Updated, err = u.products.BulkUpdate(ctx, updateSet); err != nil {
		return BatchResult{}, fmt.Errorf("batch update failed: %w", err)
	}
	return result, nil
}
