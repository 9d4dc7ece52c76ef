package webhook

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/repository"
)

// Dispatcher fans product mutations out to subscribed endpoints. Notify is
// non-blocking for callers: events go onto a bounded queue drained by a fixed
// pool of workers, and every delivery failure ends at the pool boundary as a
// log line. At-most-once, best-effort.
type Dispatcher struct {
	webhooks  repository.WebhookRepository
	deliverer Deliverer
	logger    zerolog.Logger

	tasks chan domain.Event
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool immediately.
func NewDispatcher(
	webhooks repository.WebhookRepository,
	deliverer Deliverer,
	workers int,
	queueSize int,
	logger zerolog.Logger,
) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	d := &Dispatcher{
		webhooks:  webhooks,
		deliverer: deliverer,
		logger:    logger.With().Str("component", "webhook_dispatcher").Logger(),
		tasks:     make(chan domain.Event, queueSize),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Notify enqueues one event and returns immediately. When the queue is full
// or the dispatcher is shutting down the event is dropped with a log line;
// the mutation that produced it has already committed and must not be held
// up or failed here.
func (d *Dispatcher) Notify(kind domain.EventType, product domain.Product) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("event", string(kind)).Msg("dispatcher closed, dropping event")
		return
	}

	select {
	case d.tasks <- domain.NewEvent(kind, product):
	default:
		d.logger.Warn().
			Str("event", string(kind)).
			Str("sku", product.SKU).
			Msg("delivery queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued deliveries to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.tasks {
		d.dispatch(event)
	}
}

func (d *Dispatcher) dispatch(event domain.Event) {
	ctx := context.Background()

	subscribers, err := d.webhooks.ListEnabledByEvent(ctx, event.Type)
	if err != nil {
		d.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("could not resolve subscribers")
		return
	}

	for _, subscriber := range subscribers {
		delivery, err := d.deliverer.Deliver(ctx, subscriber.URL, event)
		switch {
		case err != nil:
			d.logger.Warn().
				Err(err).
				Stringer("webhook_id", subscriber.ID).
				Str("event", string(event.Type)).
				Msg("webhook delivery failed")
		case !delivery.OK():
			d.logger.Warn().
				Stringer("webhook_id", subscriber.ID).
				Str("event", string(event.Type)).
				Int("status", delivery.StatusCode).
				Msg("webhook endpoint rejected delivery")
		default:
			d.logger.Debug().
				Stringer("webhook_id", subscriber.ID).
				Str("event", string(event.Type)).
				Int("status", delivery.StatusCode).
				Dur("elapsed", delivery.Elapsed).
				Msg("webhook delivered")
		}
	}
}
