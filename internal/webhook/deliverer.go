package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
)

const maxResponseBody = 500

// Delivery reports the outcome of one outbound attempt.
type Delivery struct {
	StatusCode int
	Elapsed    time.Duration
	Body       string
}

// OK reports whether the endpoint acknowledged the event.
func (d Delivery) OK() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}

// Deliverer performs a single outbound delivery attempt. An error means the
// request never completed; a non-2xx Delivery means the endpoint rejected it.
type Deliverer interface {
	Deliver(ctx context.Context, url string, event domain.Event) (Delivery, error)
}

type eventPayload struct {
	Event     domain.EventType `json:"event"`
	Data      productPayload   `json:"data"`
	Timestamp string           `json:"timestamp"`
}

type productPayload struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Timestamp   string    `json:"timestamp"`
}

func newEventPayload(event domain.Event) eventPayload {
	timestamp := event.OccurredAt.Format(time.RFC3339)
	return eventPayload{
		Event: event.Type,
		Data: productPayload{
			ID:          event.Product.ID,
			Name:        event.Product.Name,
			SKU:         domain.CanonicalSKU(event.Product.SKU),
			Description: event.Product.Description,
			Active:      event.Product.Active,
			Timestamp:   timestamp,
		},
		Timestamp: timestamp,
	}
}

// HTTPDeliverer posts event payloads as JSON with a bounded timeout.
type HTTPDeliverer struct {
	client *http.Client
}

// NewHTTPDeliverer creates a deliverer with the given per-request timeout.
func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDeliverer{client: &http.Client{Timeout: timeout}}
}

// Deliver makes exactly one attempt. It never retries.
func (d *HTTPDeliverer) Deliver(ctx context.Context, url string, event domain.Event) (Delivery, error) {
	body, err := json.Marshal(newEventPayload(event))
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Delivery{Elapsed: elapsed}, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	return Delivery{
		StatusCode: resp.StatusCode,
		Elapsed:    elapsed,
		Body:       string(snippet),
	}, nil
}
