// Package worker consumes accepted events from the broker and drives the
// delivery orchestrator against them. The webhook handler acks its caller as
// soon as an event is deduplicated and enqueued; this worker is where the
// actual downstream delivery, including a second cycle of redeliveries for
// transient failures, happens.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/marconicastro/zeropragas-sub000/internal/broker"
	"github.com/marconicastro/zeropragas-sub000/internal/delivery"
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
)

const (
	// maxCycles bounds broker-level redelivery cycles. Each cycle already
	// runs the executor's full in-process retry budget, so this multiplies,
	// not replaces, the per-attempt policy.
	maxCycles = 3

	// fetchRetryDelay throttles the fetch loop when the broker read itself
	// fails, so a deleted consumer or dropped connection does not spin it
	// hot.
	fetchRetryDelay = 2 * time.Second
)

// Message is the broker envelope for one accepted event.
type Message struct {
	Event       domain.InboundEvent `json:"event"`
	Fingerprint string              `json:"fingerprint"`
}

// Fetcher is the slice of jetstream.Consumer the worker pulls from.
type Fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

type Worker struct {
	orch      *delivery.Orchestrator
	consumer  Fetcher
	publisher broker.Publisher
	backoff   *retry.Backoff

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

func New(orch *delivery.Orchestrator, consumer Fetcher, publisher broker.Publisher) *Worker {
	return &Worker{
		orch:      orch,
		consumer:  consumer,
		publisher: publisher,
		backoff:   retry.DefaultBackoff(),
		sleep:     sleepCtx,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	slog.Info("delivery worker started", slog.String("code", "SYS_STARTUP"))
	for {
		select {
		case <-ctx.Done():
			slog.Info("delivery worker shutting down", slog.String("code", "SYS_SHUTDOWN"))
			return ctx.Err()
		default:
			msgs, err := w.consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				slog.Error("error fetching messages", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
				w.sleep(ctx, fetchRetryDelay)
				continue
			}

			for msg := range msgs.Messages() {
				w.processMessage(ctx, msg)
			}
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg jetstream.Msg) {
	var m Message
	if err := json.Unmarshal(msg.Data(), &m); err != nil {
		slog.Error("failed to unmarshal message", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
		msg.Ack()
		return
	}

	ctx = logging.WithEvent(ctx, m.Event.ID, string(m.Event.Kind))
	log := logging.FromContext(ctx)

	outcome := w.orch.DeliverAccepted(ctx, &m.Event, m.Fingerprint)

	retryable := false
	for _, res := range outcome.Downstreams {
		if res.Retryable() {
			retryable = true
		}
	}

	if !retryable {
		msg.Ack()
		return
	}

	// The broker's delivery count is the cycle counter; it survives Naks
	// without re-encoding the message.
	cycle := 1
	if meta, err := msg.Metadata(); err == nil {
		cycle = int(meta.NumDelivered)
	}

	if cycle < maxCycles {
		delay := w.backoff.NextDelay(cycle - 1)
		log.Info("scheduling redelivery cycle",
			slog.String("code", "DEL_RETRY"),
			slog.Int("cycle", cycle+1),
			slog.Duration("delay", delay),
		)
		msg.NakWithDelay(delay)
		return
	}

	log.Error("delivery exhausted, moving to DLQ",
		slog.String("code", "DEL_FAILED"),
		slog.Int("cycles", cycle),
	)
	data, _ := json.Marshal(m)
	if err := w.publisher.PublishToDLQ(ctx, data); err != nil {
		log.Error("failed to publish to DLQ", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
	}
	msg.Ack()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
