package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/fulfill/internal/domain"
)

// stubJobRepo persists jobs in memory and enforces the same forward-only
// transition guards as the SQL implementation.
type stubJobRepo struct {
	mu             sync.Mutex
	jobs           map[uuid.UUID]domain.ImportJob
	countViolation bool
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[uuid.UUID]domain.ImportJob)}
}

func (s *stubJobRepo) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubJobRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ImportJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (s *stubJobRepo) transition(id uuid.UUID, next domain.JobStatus) error {
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !job.Status.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s", job.Status, next)
	}
	job.Status = next
	s.jobs[id] = job
	return nil
}

func (s *stubJobRepo) SetProcessing(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, domain.JobStatusProcessing)
}

func (s *stubJobRepo) SetTotals(ctx context.Context, id uuid.UUID, totalRows int, skippedRows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.TotalRows = totalRows
	job.SkippedRows = skippedRows
	s.jobs[id] = job
	return nil
}

func (s *stubJobRepo) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	job.ProcessedRows += delta
	if delta <= 0 || (job.TotalRows > 0 && job.ProcessedRows > job.TotalRows) {
		s.countViolation = true
	}
	s.jobs[id] = job
	return nil
}

func (s *stubJobRepo) Complete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, domain.JobStatusCompleted)
}

func (s *stubJobRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(id, domain.JobStatusFailed); err != nil {
		return err
	}
	job := s.jobs[id]
	job.ErrorMessage = &message
	s.jobs[id] = job
	return nil
}

// recordingNotifier counts events per kind without delivering anything.
type recordingNotifier struct {
	mu     sync.Mutex
	counts map[domain.EventType]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{counts: make(map[domain.EventType]int)}
}

func (n *recordingNotifier) Notify(kind domain.EventType, product domain.Product) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[kind]++
}

func (n *recordingNotifier) count(kind domain.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[kind]
}

func buildCSV(rows int, malformedAt int) []byte {
	var b strings.Builder
	b.WriteString("name,sku,description\n")
	for i := 1; i <= rows; i++ {
		if i == malformedAt {
			b.WriteString(fmt.Sprintf("Product %d,,missing business key\n", i))
			continue
		}
		b.WriteString(fmt.Sprintf("Product %d,SKU-%d,Description %d\n", i, i, i))
	}
	return []byte(b.String())
}

func newTestService(products *stubProductRepo, jobs *stubJobRepo, notifier Notifier, batchSize int) *Service {
	return NewService(jobs, NewUpserter(products), notifier, batchSize, zerolog.Nop())
}

func TestImportCompletesAndSkipsMalformedRows(t *testing.T) {
	products := newStubProductRepo()
	jobs := newStubJobRepo()
	notifier := newRecordingNotifier()
	service := newTestService(products, jobs, notifier, 100)

	job, err := service.StartImport(context.Background(), "products.csv", buildCSV(500, 250))
	if err != nil {
		t.Fatalf("start import returned error: %v", err)
	}
	service.Wait()

	final, err := jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s (error: %v)", final.Status, final.ErrorMessage)
	}
	if final.TotalRows != 499 || final.ProcessedRows != 499 {
		t.Fatalf("expected 499 processed of 499, got %d of %d", final.ProcessedRows, final.TotalRows)
	}
	if final.SkippedRows != 1 {
		t.Fatalf("expected 1 skipped row, got %d", final.SkippedRows)
	}
	if jobs.countViolation {
		t.Fatalf("processed count regressed or exceeded total")
	}
	if got := notifier.count(domain.EventProductCreated); got != 499 {
		t.Fatalf("expected 499 created notifications, got %d", got)
	}
	if products.size() != 499 {
		t.Fatalf("expected 499 stored products, got %d", products.size())
	}
}

func TestImportBatchFailureRetainsProgressAndRerunSucceeds(t *testing.T) {
	products := newStubProductRepo()
	products.failOnBatch = 3
	jobs := newStubJobRepo()
	notifier := newRecordingNotifier()
	service := newTestService(products, jobs, notifier, 10)

	payload := buildCSV(50, 0)

	job, err := service.StartImport(context.Background(), "products.csv", payload)
	if err != nil {
		t.Fatalf("start import returned error: %v", err)
	}
	service.Wait()

	failed, _ := jobs.GetByID(context.Background(), job.ID)
	if failed.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed job, got %s", failed.Status)
	}
	if failed.ProcessedRows != 20 {
		t.Fatalf("expected 20 rows committed before the failure, got %d", failed.ProcessedRows)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage == "" {
		t.Fatalf("expected a non-empty error message")
	}
	if products.size() != 20 {
		t.Fatalf("expected the first two batches to stay committed, got %d products", products.size())
	}

	// Re-running the same file is idempotent: committed rows resolve to
	// updates and the job runs to completion.
	products.failOnBatch = 0
	rerun, err := service.StartImport(context.Background(), "products.csv", payload)
	if err != nil {
		t.Fatalf("rerun returned error: %v", err)
	}
	service.Wait()

	final, _ := jobs.GetByID(context.Background(), rerun.ID)
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("expected rerun to complete, got %s (error: %v)", final.Status, final.ErrorMessage)
	}
	if final.ProcessedRows != 50 {
		t.Fatalf("expected rerun to process all 50 rows, got %d", final.ProcessedRows)
	}
	if products.size() != 50 {
		t.Fatalf("expected 50 stored products after rerun, got %d", products.size())
	}
	if got := notifier.count(domain.EventProductUpdated); got != 20 {
		t.Fatalf("expected 20 updated notifications from the rerun, got %d", got)
	}
	if jobs.countViolation {
		t.Fatalf("processed count regressed or exceeded total")
	}
}

func TestImportFailsOnBadHeader(t *testing.T) {
	products := newStubProductRepo()
	jobs := newStubJobRepo()
	service := newTestService(products, jobs, newRecordingNotifier(), 100)

	job, err := service.StartImport(context.Background(), "products.csv", []byte("foo,bar\nWidget,SKU-1\n"))
	if err != nil {
		t.Fatalf("start import returned error: %v", err)
	}
	service.Wait()

	final, _ := jobs.GetByID(context.Background(), job.ID)
	if final.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed job, got %s", final.Status)
	}
	if final.ErrorMessage == nil || *final.ErrorMessage == "" {
		t.Fatalf("expected a non-empty error message")
	}
	if final.ProcessedRows != 0 {
		t.Fatalf("expected no rows processed, got %d", final.ProcessedRows)
	}
	if products.size() != 0 {
		t.Fatalf("expected no products written, got %d", products.size())
	}
}

func TestStartImportRejectsEmptyPayload(t *testing.T) {
	service := newTestService(newStubProductRepo(), newStubJobRepo(), newRecordingNotifier(), 100)

	if _, err := service.StartImport(context.Background(), "empty.csv", nil); err == nil {
		t.Fatalf("expected an error for an empty payload")
	}
}

func TestImportDedupsAcrossCaseWithinBatch(t *testing.T) {
	products := newStubProductRepo()
	jobs := newStubJobRepo()
	service := newTestService(products, jobs, newRecordingNotifier(), 100)

	payload := []byte("name,sku,description\nWidget,SKU-1,A widget\nGadget,sku-1,A gadget\n")

	job, err := service.StartImport(context.Background(), "products.csv", payload)
	if err != nil {
		t.Fatalf("start import returned error: %v", err)
	}
	service.Wait()

	final, _ := jobs.GetByID(context.Background(), job.ID)
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s", final.Status)
	}
	if products.size() != 1 {
		t.Fatalf("expected exactly one stored product, got %d", products.size())
	}
	stored, ok := products.get("sku-1")
	if !ok {
		t.Fatalf("expected a product under canonical key sku-1")
	}
	if stored.Name != "Gadget" || stored.Description != "A gadget" {
		t.Fatalf("expected the later row to win, got %+v", stored)
	}
}
