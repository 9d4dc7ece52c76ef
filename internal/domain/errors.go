package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSKUConflict is returned when a single-record create or update would
	// collide with an existing product on the canonical SKU. The bulk path
	// never returns it; there a collision means overwrite.
	ErrSKUConflict = errors.New("a product with this SKU already exists")

	// ErrWebhookExists is returned when a webhook registration duplicates an
	// existing URL and event type pair.
	ErrWebhookExists = errors.New("a webhook for this URL and event type already exists")
)
