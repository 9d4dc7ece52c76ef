package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fulfill/internal/domain"
)

const webhookColumns = "id, url, event_type, enabled, created_at, updated_at"

type webhookRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository wires a repository backed by pgxpool.
func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepository{pool: pool}
}

func (r *webhookRepository) Create(ctx context.Context, webhook domain.Webhook) (domain.Webhook, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO webhooks (id, url, event_type, enabled)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+webhookColumns,
		webhook.ID,
		webhook.URL,
		webhook.EventType,
		webhook.Enabled,
	)

	created, err := scanWebhook(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Webhook{}, domain.ErrWebhookExists
		}
		return domain.Webhook{}, fmt.Errorf("failed to create webhook: %w", err)
	}
	return created, nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Webhook, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`,
		id,
	)

	webhook, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Webhook{}, domain.ErrNotFound
		}
		return domain.Webhook{}, fmt.Errorf("failed to get webhook: %w", err)
	}
	return webhook, nil
}

func (r *webhookRepository) List(ctx context.Context, enabled *bool) ([]domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks ORDER BY created_at DESC`
	args := []any{}
	if enabled != nil {
		query = `SELECT ` + webhookColumns + ` FROM webhooks WHERE enabled = $1 ORDER BY created_at DESC`
		args = append(args, *enabled)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

func (r *webhookRepository) Update(ctx context.Context, webhook domain.Webhook) (domain.Webhook, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE webhooks
		 SET url = $2, event_type = $3, enabled = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+webhookColumns,
		webhook.ID,
		webhook.URL,
		webhook.EventType,
		webhook.Enabled,
	)

	updated, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Webhook{}, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Webhook{}, domain.ErrWebhookExists
		}
		return domain.Webhook{}, fmt.Errorf("failed to update webhook: %w", err)
	}
	return updated, nil
}

func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *webhookRepository) ListEnabledByEvent(ctx context.Context, kind domain.EventType) ([]domain.Webhook, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE event_type = $1 AND enabled ORDER BY created_at`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled webhooks: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

func scanWebhook(row pgx.Row) (domain.Webhook, error) {
	var w domain.Webhook
	err := row.Scan(&w.ID, &w.URL, &w.EventType, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func scanWebhooks(rows pgx.Rows) ([]domain.Webhook, error) {
	webhooks := []domain.Webhook{}
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, webhook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}
	return webhooks, nil
}
