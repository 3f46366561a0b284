// Package delivery drives the reliability core: deduplication, enrichment,
// retried downstream fan-out, and advisory statistics.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marconicastro/zeropragas-sub000/internal/dedup"
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream"
	"github.com/marconicastro/zeropragas-sub000/internal/enrich"
	"github.com/marconicastro/zeropragas-sub000/internal/events"
	"github.com/marconicastro/zeropragas-sub000/internal/fingerprint"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/metrics"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
	"github.com/marconicastro/zeropragas-sub000/internal/store"
)

const DefaultEventDeadline = 15 * time.Second

// Orchestrator is the delivery façade. All shared mutable state (dedup
// cache, breaker registry inside the executor, stats) is constructor
// injected; invocations for different events are safe to run concurrently.
type Orchestrator struct {
	cache    *dedup.Cache
	exec     *retry.Executor
	clients  []downstream.Client
	provider ContextProvider
	stats    *Stats
	hub      *events.Hub             // optional
	records  store.DeliveryLogStore  // optional, best-effort
	deadline time.Duration
}

type Option func(*Orchestrator)

func WithHub(h *events.Hub) Option {
	return func(o *Orchestrator) { o.hub = h }
}

func WithDeliveryLog(s store.DeliveryLogStore) Option {
	return func(o *Orchestrator) { o.records = s }
}

func WithEventDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

func NewOrchestrator(cache *dedup.Cache, exec *retry.Executor, provider ContextProvider, clients []downstream.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:    cache,
		exec:     exec,
		clients:  clients,
		provider: provider,
		stats:    NewStats(),
		deadline: DefaultEventDeadline,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stats exposes the advisory counters.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// Accept computes the event's fingerprint and records it in the dedup cache.
// It is the synchronous half of the async ingestion path: the caller can ack
// the producer as soon as Accept returns, and hand the event to the broker
// for delivery. A cancelled or failed later delivery does not roll the
// dedup entry back; re-submission counts as a duplicate.
func (o *Orchestrator) Accept(ev *domain.InboundEvent) (fp string, duplicate bool) {
	fp = fingerprint.Compute(ev)
	duplicate = o.cache.CheckAndRecord(fp)
	if duplicate {
		o.stats.recordDuplicate()
		metrics.EventsDuplicate.Inc()
		o.publish(events.DeliveryActivity{
			EventID: ev.ID, Fingerprint: fp, Kind: string(ev.Kind),
			Status: events.ActivityDuplicate, Timestamp: time.Now(),
		})
	} else {
		o.publish(events.DeliveryActivity{
			EventID: ev.ID, Fingerprint: fp, Kind: string(ev.Kind),
			Status: events.ActivityAccepted, Timestamp: time.Now(),
		})
	}
	metrics.EventsReceived.WithLabelValues(ev.Source, string(ev.Kind)).Inc()
	return fp, duplicate
}

// Deliver runs the full pipeline for one event: dedup fast path, enrichment,
// and retried delivery to every configured downstream. It always returns a
// complete outcome, never an error.
func (o *Orchestrator) Deliver(ctx context.Context, ev *domain.InboundEvent) *domain.DeliveryOutcome {
	fp, duplicate := o.Accept(ev)
	if duplicate {
		return o.duplicateOutcome(ev, fp)
	}
	return o.DeliverAccepted(ctx, ev, fp)
}

// DeliverAccepted delivers an event whose fingerprint was already recorded
// by Accept. Downstreams are independent: each gets its own payload, its own
// retry budget, and its own result; they run concurrently and one failing
// never blocks another.
func (o *Orchestrator) DeliverAccepted(ctx context.Context, ev *domain.InboundEvent, fp string) *domain.DeliveryOutcome {
	start := time.Now()
	ctx = logging.WithEvent(ctx, ev.ID, string(ev.Kind))
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	ec, err := o.provider.Context(ctx, ev)
	if err != nil {
		// Enrichment context is best-effort: deliver with what the event
		// itself carries rather than failing the whole pipeline.
		log.Warn("user context lookup failed", slog.String("code", "CTX_LOOKUP_FAILED"), slog.Any("error", err))
	}

	outcome := &domain.DeliveryOutcome{
		EventID:     ev.ID,
		Fingerprint: fp,
		Downstreams: make(map[string]*domain.DownstreamResult, len(o.clients)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, cl := range o.clients {
		wg.Add(1)
		go func(cl downstream.Client) {
			defer wg.Done()
			res := o.deliverOne(ctx, cl, ev, ec, fp)
			mu.Lock()
			outcome.Downstreams[cl.Name()] = res
			mu.Unlock()
		}(cl)
	}
	wg.Wait()

	outcome.Duration = time.Since(start)
	o.stats.recordOutcome(outcome.AllSucceeded(), uint64(outcome.Duration.Microseconds()))
	metrics.DeliveryDuration.Observe(float64(outcome.Duration.Milliseconds()))

	log.Info("delivery finished",
		slog.String("code", "DEL_DONE"),
		slog.Bool("allSucceeded", outcome.AllSucceeded()),
		slog.Duration("duration", outcome.Duration),
	)
	return outcome
}

func (o *Orchestrator) deliverOne(ctx context.Context, cl downstream.Client, ev *domain.InboundEvent, ec domain.EnrichmentContext, fp string) *domain.DownstreamResult {
	ctx = logging.WithDownstream(ctx, cl.Name())
	start := time.Now()

	result := &domain.DownstreamResult{Downstream: cl.Name()}

	body, err := cl.Prepare(ev, ec, fp)
	if err != nil {
		var verr *enrich.ValidationError
		if errors.As(err, &verr) {
			result.Status = domain.DeliveryStatusValidationFailed
		} else {
			result.Status = domain.DeliveryStatusFailed
		}
		result.Error = err.Error()
		o.finishOne(ctx, ev, fp, result, start)
		return result
	}

	op := cl.Operation(ev)
	res := o.exec.ExecuteWithRecovery(ctx, op, func(ctx context.Context) error {
		metrics.DeliveryAttempts.WithLabelValues(cl.Name()).Inc()
		return cl.Send(ctx, body)
	})

	result.Attempts = res.Attempts
	result.Strategy = res.Strategy
	switch {
	case res.Success:
		result.Status = domain.DeliveryStatusSuccess
	case res.Strategy == retry.StrategyCircuitRejected:
		result.Status = domain.DeliveryStatusCircuitRejected
	case res.Strategy == retry.StrategyCancelled:
		result.Status = domain.DeliveryStatusCancelled
	case res.Strategy == retry.StrategyNonRecoverable:
		result.Status = domain.DeliveryStatusNonRecoverable
	default:
		result.Status = domain.DeliveryStatusFailed
	}
	if res.Err != nil {
		result.Error = res.Err.Error()
	}

	o.finishOne(ctx, ev, fp, result, start)
	return result
}

// finishOne records latency, publishes activity, bumps metrics, and writes
// the best-effort audit row. None of it can fail the delivery.
func (o *Orchestrator) finishOne(ctx context.Context, ev *domain.InboundEvent, fp string, result *domain.DownstreamResult, start time.Time) {
	result.Latency = time.Since(start)
	metrics.Deliveries.WithLabelValues(result.Downstream, string(result.Status)).Inc()

	o.publish(events.DeliveryActivity{
		EventID:     ev.ID,
		Fingerprint: fp,
		Kind:        string(ev.Kind),
		Downstream:  result.Downstream,
		Status:      activityStatus(result.Status),
		Attempts:    result.Attempts,
		Message:     result.Error,
		Timestamp:   time.Now(),
	})

	if o.records == nil {
		return
	}
	rec := &domain.DeliveryRecord{
		ID:          uuid.New().String(),
		Fingerprint: fp,
		EventID:     ev.ID,
		EventKind:   ev.Kind,
		Downstream:  result.Downstream,
		Status:      result.Status,
		Attempts:    result.Attempts,
		Error:       result.Error,
		LatencyMs:   result.Latency.Milliseconds(),
		CreatedAt:   time.Now(),
	}
	if err := o.records.Record(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("failed to write delivery record",
			slog.String("code", "DB_ERROR"), slog.Any("error", err))
	}
}

func (o *Orchestrator) duplicateOutcome(ev *domain.InboundEvent, fp string) *domain.DeliveryOutcome {
	outcome := &domain.DeliveryOutcome{
		EventID:     ev.ID,
		Fingerprint: fp,
		Duplicate:   true,
		Downstreams: make(map[string]*domain.DownstreamResult, len(o.clients)),
	}
	for _, cl := range o.clients {
		outcome.Downstreams[cl.Name()] = &domain.DownstreamResult{
			Downstream: cl.Name(),
			Status:     domain.DeliveryStatusDuplicate,
		}
	}
	return outcome
}

func (o *Orchestrator) publish(a events.DeliveryActivity) {
	if o.hub != nil {
		o.hub.Publish(a)
	}
}

func activityStatus(s domain.DeliveryStatus) events.ActivityStatus {
	switch s {
	case domain.DeliveryStatusSuccess:
		return events.ActivityDelivered
	case domain.DeliveryStatusCircuitRejected:
		return events.ActivityRejected
	case domain.DeliveryStatusValidationFailed:
		return events.ActivityInvalid
	default:
		return events.ActivityFailed
	}
}
