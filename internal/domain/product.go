package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item loaded from tabular files or managed through the
// interactive API. The SKU column keeps the casing it was supplied with;
// uniqueness is enforced on the canonical form.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CanonicalSKU folds a SKU for equality and uniqueness comparisons. Two
// products may never coexist with the same canonical SKU.
func CanonicalSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}

// ProductFilter narrows product listings. String fields match
// case-insensitive substrings.
type ProductFilter struct {
	SKU         string
	Name        string
	Description string
	Active      *bool
}
