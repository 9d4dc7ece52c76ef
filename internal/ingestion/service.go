package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/repository"
)

// DefaultBatchSize is the number of rows written to storage per batch.
const DefaultBatchSize = 5000

// Notifier hands a product mutation to asynchronous delivery. Implementations
// must return without blocking the ingestion loop.
type Notifier interface {
	Notify(kind domain.EventType, product domain.Product)
}

// Service orchestrates bulk imports: it accepts an upload, returns a job id
// immediately, and drives decode -> batch upsert -> job record updates as a
// detached background unit of work. The persisted job is the only channel
// through which callers observe progress and failure.
type Service struct {
	jobs      repository.ImportJobRepository
	upserter  *Upserter
	notifier  Notifier
	batchSize int
	logger    zerolog.Logger

	wg sync.WaitGroup
}

// NewService creates the ingestion orchestrator. A batchSize of zero or less
// falls back to DefaultBatchSize.
func NewService(
	jobs repository.ImportJobRepository,
	upserter *Upserter,
	notifier Notifier,
	batchSize int,
	logger zerolog.Logger,
) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		jobs:      jobs,
		upserter:  upserter,
		notifier:  notifier,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "ingestion").Logger(),
	}
}

// StartImport records a pending job for the payload and launches its run in
// the background. It returns as soon as the job record exists; all further
// outcomes are observable only by polling the job.
func (s *Service) StartImport(ctx context.Context, fileName string, payload []byte) (domain.ImportJob, error) {
	if len(payload) == 0 {
		return domain.ImportJob{}, errors.New("file is empty")
	}

	job, err := s.jobs.Create(ctx, domain.NewImportJob(fileName))
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context; the job must keep running after
		// the upload response is sent.
		s.run(context.Background(), job, fileName, payload)
	}()

	return job, nil
}

// GetJob returns the current persisted snapshot of a job.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// Wait blocks until all in-flight import runs have finished. Used on
// shutdown and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, job domain.ImportJob, fileName string, payload []byte) {
	logger := s.logger.With().Stringer("job_id", job.ID).Str("file", fileName).Logger()

	if err := s.jobs.SetProcessing(ctx, job.ID); err != nil {
		logger.Error().Err(err).Msg("could not mark job processing")
		return
	}

	// First pass: count the valid rows so pollers see a total before the
	// first batch lands. The payload is in memory, so decoding twice is
	// cheaper than buffering rows.
	total, skipped, err := countRows(fileName, payload)
	if err != nil {
		s.fail(ctx, logger, job.ID, err)
		return
	}
	if err := s.jobs.SetTotals(ctx, job.ID, total, skipped); err != nil {
		s.fail(ctx, logger, job.ID, err)
		return
	}

	decoder, err := NewDecoder(fileName, payload)
	if err != nil {
		s.fail(ctx, logger, job.ID, err)
		return
	}

	created, updated := 0, 0
	batch := make([]Row, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := s.upserter.Apply(ctx, batch)
		if err != nil {
			return err
		}
		if err := s.jobs.IncrementProcessed(ctx, job.ID, len(batch)); err != nil {
			return err
		}
		for _, product := range result.Created {
			s.notifier.Notify(domain.EventProductCreated, product)
		}
		for _, product := range result.Updated {
			s.notifier.Notify(domain.EventProductUpdated, product)
		}
		created += len(result.Created)
		updated += len(result.Updated)
		batch = batch[:0]
		return nil
	}

	for {
		row, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.fail(ctx, logger, job.ID, err)
			return
		}

		batch = append(batch, row)
		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				s.fail(ctx, logger, job.ID, err)
				return
			}
		}
	}
	if err := flush(); err != nil {
		s.fail(ctx, logger, job.ID, err)
		return
	}

	if err := s.jobs.Complete(ctx, job.ID); err != nil {
		logger.Error().Err(err).Msg("could not mark job completed")
		return
	}

	logger.Info().
		Int("total", total).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("import completed")
}

// fail records the error on the job. Prior batch progress stays committed;
// callers can read the processed count to see how far the run got.
func (s *Service) fail(ctx context.Context, logger zerolog.Logger, id uuid.UUID, cause error) {
	logger.Error().Err(cause).Msg("import failed")
	if err := s.jobs.Fail(ctx, id, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("could not mark job failed")
	}
}

func countRows(fileName string, payload []byte) (total int, skipped int, err error) {
	decoder, err := NewDecoder(fileName, payload)
	if err != nil {
		return 0, 0, err
	}
	for {
		if _, err := decoder.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return total, decoder.Skipped(), nil
			}
			return 0, 0, err
		}
		total++
	}
}
