package webhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/repository"
)

// Service manages webhook registrations and the manual test delivery.
type Service struct {
	repo      repository.WebhookRepository
	deliverer Deliverer
}

// NewService creates the webhook management service.
func NewService(repo repository.WebhookRepository, deliverer Deliverer) *Service {
	return &Service{repo: repo, deliverer: deliverer}
}

// Create registers an endpoint for one event kind.
func (s *Service) Create(ctx context.Context, url string, kind domain.EventType, enabled bool) (domain.Webhook, error) {
	if !kind.Valid() {
		return domain.Webhook{}, fmt.Errorf("unknown event type %q", kind)
	}
	return s.repo.Create(ctx, domain.Webhook{
		ID:        uuid.New(),
		URL:       url,
		EventType: kind,
		Enabled:   enabled,
	})
}

// Get returns a webhook by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Webhook, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns webhooks, optionally filtered by the enabled flag.
func (s *Service) List(ctx context.Context, enabled *bool) ([]domain.Webhook, error) {
	return s.repo.List(ctx, enabled)
}

// Update replaces a webhook's URL, event kind and enabled flag.
func (s *Service) Update(ctx context.Context, id uuid.UUID, url string, kind domain.EventType, enabled bool) (domain.Webhook, error) {
	if !kind.Valid() {
		return domain.Webhook{}, fmt.Errorf("unknown event type %q", kind)
	}
	return s.repo.Update(ctx, domain.Webhook{
		ID:        id,
		URL:       url,
		EventType: kind,
		Enabled:   enabled,
	})
}

// Delete removes a webhook.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// TestResult reports the outcome of a manual test delivery.
type TestResult struct {
	Status       string  `json:"status"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseTime float64 `json:"response_time"`
	ResponseBody string  `json:"response_body,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Test performs one synchronous delivery of a sample payload to the webhook's
// endpoint, regardless of its enabled flag, and reports status code and
// elapsed time. It shares the single-attempt semantics of the async path.
func (s *Service) Test(ctx context.Context, id uuid.UUID) (TestResult, error) {
	hook, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return TestResult{}, err
	}

	sample := domain.Product{
		ID:          uuid.New(),
		Name:        "Test Product",
		SKU:         "test-sku",
		Description: "This is a test webhook trigger",
		Active:      true,
	}

	delivery, err := s.deliverer.Deliver(ctx, hook.URL, domain.NewEvent(hook.EventType, sample))
	if err != nil {
		return TestResult{
			Status:       "error",
			ResponseTime: delivery.Elapsed.Seconds(),
			Error:        err.Error(),
		}, nil
	}

	status := "success"
	if !delivery.OK() {
		status = "error"
	}
	return TestResult{
		Status:       status,
		StatusCode:   delivery.StatusCode,
		ResponseTime: delivery.Elapsed.Seconds(),
		ResponseBody: delivery.Body,
	}, nil
}
