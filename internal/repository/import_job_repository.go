package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fulfill/internal/domain"
)

// ErrInvalidTransition is returned when a status change would move a job
// backwards. The guards live in the UPDATE statements themselves.
var ErrInvalidTransition = errors.New("invalid import job status transition")

const importJobColumns = "id, status, total_rows, processed_rows, skipped_rows, error_message, source_name, created_at, updated_at"

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository wires a repository backed by pgxpool.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

func (r *importJobRepository) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO import_jobs (id, status, source_name)
		 VALUES ($1, $2, $3)
		 RETURNING `+importJobColumns,
		job.ID,
		job.Status,
		job.SourceName,
	)

	created, err := scanImportJob(row)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}
	return created, nil
}

func (r *importJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+importJobColumns+` FROM import_jobs WHERE id = $1`,
		id,
	)

	job, err := scanImportJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ImportJob{}, domain.ErrNotFound
		}
		return domain.ImportJob{}, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *importJobRepository) SetProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, domain.JobStatusProcessing, domain.JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark import job processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *importJobRepository) SetTotals(ctx context.Context, id uuid.UUID, totalRows int, skippedRows int) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET total_rows = $2, skipped_rows = $3, updated_at = now()
		 WHERE id = $1`,
		id, totalRows, skippedRows,
	)
	if err != nil {
		return fmt.Errorf("failed to set import job totals: %w", err)
	}
	return nil
}

func (r *importJobRepository) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET processed_rows = processed_rows + $2, updated_at = now()
		 WHERE id = $1`,
		id, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to advance import job progress: %w", err)
	}
	return nil
}

func (r *importJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, domain.JobStatusCompleted, domain.JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to complete import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *importJobRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE import_jobs SET status = $2, error_message = $3, updated_at = now()
		 WHERE id = $1 AND status = ANY($4)`,
		id, domain.JobStatusFailed, message,
		[]string{string(domain.JobStatusPending), string(domain.JobStatusProcessing)},
	)
	if err != nil {
		return fmt.Errorf("failed to fail import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func scanImportJob(row pgx.Row) (domain.ImportJob, error) {
	var (
		job          domain.ImportJob
		errorMessage pgtype.Text
	)
	err := row.Scan(
		&job.ID,
		&job.Status,
		&job.TotalRows,
		&job.ProcessedRows,
		&job.SkippedRows,
		&errorMessage,
		&job.SourceName,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return domain.ImportJob{}, err
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	return job, nil
}
