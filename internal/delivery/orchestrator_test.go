package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marconicastro/zeropragas-sub000/internal/breaker"
	"github.com/marconicastro/zeropragas-sub000/internal/dedup"
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream"
	"github.com/marconicastro/zeropragas-sub000/internal/enrich"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
)

// fakeClient is an in-memory downstream.Client with scripted failures.
type fakeClient struct {
	mu         sync.Mutex
	name       string
	op         string
	prepareErr error
	sendErrs   []error // consumed per call; nil entry means success
	sends      int
}

func (f *fakeClient) Name() string                            { return f.name }
func (f *fakeClient) Operation(_ *domain.InboundEvent) string { return f.op }

func (f *fakeClient) Prepare(_ *domain.InboundEvent, _ domain.EnrichmentContext, _ string) ([]byte, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	return []byte(`{}`), nil
}

func (f *fakeClient) Send(_ context.Context, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.sends < len(f.sendErrs) {
		err = f.sendErrs[f.sends]
	}
	f.sends++
	return err
}

func (f *fakeClient) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type staticProvider struct {
	ec  domain.EnrichmentContext
	err error
}

func (p *staticProvider) Context(context.Context, *domain.InboundEvent) (domain.EnrichmentContext, error) {
	return p.ec, p.err
}

// fastProfiles keeps backoff at the 100ms floor so retry tests stay quick.
func fastProfiles() map[string]retry.Profile {
	p := retry.Profile{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 2.0,
		FailureThreshold:  5,
		Cooldown:          time.Minute,
	}
	return map[string]retry.Profile{
		retry.OpSendToAdsAPI:       p,
		retry.OpSendToAnalyticsAPI: p,
	}
}

func newTestOrchestrator(clients ...downstream.Client) *Orchestrator {
	exec := retry.NewExecutor(fastProfiles(), breaker.NewRegistry())
	return NewOrchestrator(dedup.New(5*time.Minute, 1000), exec, &staticProvider{}, clients)
}

func purchase(id, txID string) *domain.InboundEvent {
	return &domain.InboundEvent{
		ID:         id,
		Kind:       domain.KindPurchaseApproved,
		Source:     "webhook",
		OccurredAt: time.Now(),
		Payload: map[string]any{
			"transaction_id": txID,
			"email":          "buyer@example.com",
			"amount":         297.0,
		},
	}
}

func TestDeliverAllDownstreamsSucceed(t *testing.T) {
	ads := &fakeClient{name: "ads-api", op: retry.OpSendToAdsAPI}
	analytics := &fakeClient{name: "analytics-api", op: retry.OpSendToAnalyticsAPI}
	o := newTestOrchestrator(ads, analytics)

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	if out.Duplicate {
		t.Fatal("fresh event reported as duplicate")
	}
	if !out.AllSucceeded() {
		t.Fatalf("expected full success, got %+v", out.Downstreams)
	}
	if ads.sendCount() != 1 || analytics.sendCount() != 1 {
		t.Errorf("expected one send per downstream, got %d/%d", ads.sendCount(), analytics.sendCount())
	}
	if out.Downstreams["ads-api"].Status != domain.DeliveryStatusSuccess {
		t.Errorf("unexpected ads result: %+v", out.Downstreams["ads-api"])
	}
}

func TestDuplicateFastPathSkipsNetwork(t *testing.T) {
	ads := &fakeClient{name: "ads-api", op: retry.OpSendToAdsAPI}
	o := newTestOrchestrator(ads)

	ev := purchase("ev-1", "TX1")
	o.Deliver(context.Background(), ev)

	// Same transaction re-submitted minutes later still collapses.
	again := purchase("ev-2", "TX1")
	again.OccurredAt = ev.OccurredAt.Add(3 * time.Minute)
	out := o.Deliver(context.Background(), again)

	if !out.Duplicate {
		t.Fatal("re-submission of the same transaction must be a duplicate")
	}
	if ads.sendCount() != 1 {
		t.Errorf("duplicate must not reach the network, got %d sends", ads.sendCount())
	}
	if out.Downstreams["ads-api"].Status != domain.DeliveryStatusDuplicate {
		t.Errorf("expected duplicate status, got %+v", out.Downstreams["ads-api"])
	}
	if got := o.Stats().Snapshot().DuplicatesPrevented; got != 1 {
		t.Errorf("expected 1 duplicate prevented, got %d", got)
	}
}

func TestDownstreamsIndependent(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		sendErrs: []error{retry.Recoverable(errors.New("503")), retry.Recoverable(errors.New("503"))},
	}
	analytics := &fakeClient{name: "analytics-api", op: retry.OpSendToAnalyticsAPI}
	o := newTestOrchestrator(ads, analytics)

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	if out.AllSucceeded() {
		t.Fatal("expected partial failure")
	}
	adsRes := out.Downstreams["ads-api"]
	if adsRes.Status != domain.DeliveryStatusFailed || adsRes.Attempts != 2 {
		t.Errorf("expected ads to fail after its budget, got %+v", adsRes)
	}
	anRes := out.Downstreams["analytics-api"]
	if anRes.Status != domain.DeliveryStatusSuccess {
		t.Errorf("analytics must succeed despite the ads failure, got %+v", anRes)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		sendErrs: []error{retry.Recoverable(errors.New("timeout")), nil},
	}
	o := newTestOrchestrator(ads)

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	res := out.Downstreams["ads-api"]
	if res.Status != domain.DeliveryStatusSuccess || res.Attempts != 2 {
		t.Fatalf("expected recovery on attempt 2, got %+v", res)
	}
	if res.Strategy != retry.StrategyRetry {
		t.Errorf("expected strategy %q, got %q", retry.StrategyRetry, res.Strategy)
	}
}

func TestValidationFailureSpendsNoAttempts(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		prepareErr: &enrich.ValidationError{Downstream: "ads-api", Field: "value"},
	}
	o := newTestOrchestrator(ads)

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	res := out.Downstreams["ads-api"]
	if res.Status != domain.DeliveryStatusValidationFailed {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if ads.sendCount() != 0 || res.Attempts != 0 {
		t.Error("validation failures must not spend network attempts")
	}
}

func TestNonRecoverableFailureIsTerminal(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		sendErrs: []error{retry.NonRecoverable(errors.New("401 unauthorized"))},
	}
	o := newTestOrchestrator(ads)

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	res := out.Downstreams["ads-api"]
	if res.Status != domain.DeliveryStatusNonRecoverable {
		t.Fatalf("expected a terminal non-recoverable status, got %+v", res)
	}
	if res.Retryable() {
		t.Error("auth failures must not re-enter broker redelivery cycles")
	}
	if ads.sendCount() != 1 || res.Attempts != 1 {
		t.Errorf("expected a single aborted attempt, got %d sends / %d attempts", ads.sendCount(), res.Attempts)
	}
}

func TestCircuitRejectionReported(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		sendErrs: []error{retry.NonRecoverable(errors.New("401"))},
	}
	o := newTestOrchestrator(ads)

	// First delivery aborts and force-opens the ads circuit.
	o.Deliver(context.Background(), purchase("ev-1", "TX1"))

	out := o.Deliver(context.Background(), purchase("ev-2", "TX2"))
	res := out.Downstreams["ads-api"]
	if res.Status != domain.DeliveryStatusCircuitRejected {
		t.Fatalf("expected circuit rejection, got %+v", res)
	}
	if ads.sendCount() != 1 {
		t.Errorf("rejected delivery must not call the downstream, got %d sends", ads.sendCount())
	}
}

func TestProviderFailureDoesNotBlockDelivery(t *testing.T) {
	ads := &fakeClient{name: "ads-api", op: retry.OpSendToAdsAPI}
	exec := retry.NewExecutor(fastProfiles(), breaker.NewRegistry())
	o := NewOrchestrator(dedup.New(5*time.Minute, 1000), exec,
		&staticProvider{err: errors.New("db down")}, []downstream.Client{ads})

	out := o.Deliver(context.Background(), purchase("ev-1", "TX1"))
	if !out.AllSucceeded() {
		t.Error("context lookup failure must degrade, not fail, the delivery")
	}
}

func TestStatsCounters(t *testing.T) {
	ads := &fakeClient{
		name: "ads-api", op: retry.OpSendToAdsAPI,
		sendErrs: []error{nil, retry.Recoverable(errors.New("503")), retry.Recoverable(errors.New("503"))},
	}
	o := newTestOrchestrator(ads)

	o.Deliver(context.Background(), purchase("ev-1", "TX1")) // success
	o.Deliver(context.Background(), purchase("ev-2", "TX2")) // fails both attempts
	o.Deliver(context.Background(), purchase("ev-3", "TX1")) // duplicate of ev-1

	snap := o.Stats().Snapshot()
	if snap.TotalProcessed != 2 {
		t.Errorf("expected 2 processed, got %d", snap.TotalProcessed)
	}
	if snap.Succeeded != 1 || snap.Failed != 1 {
		t.Errorf("expected 1 success / 1 failure, got %d/%d", snap.Succeeded, snap.Failed)
	}
	if snap.DuplicatesPrevented != 1 {
		t.Errorf("expected 1 duplicate, got %d", snap.DuplicatesPrevented)
	}
	if snap.AverageProcessingTimeMs <= 0 {
		t.Error("expected a positive average latency")
	}
}

func TestAcceptThenDeliverAccepted(t *testing.T) {
	ads := &fakeClient{name: "ads-api", op: retry.OpSendToAdsAPI}
	o := newTestOrchestrator(ads)

	ev := purchase("ev-1", "TX1")
	fp, dup := o.Accept(ev)
	if dup {
		t.Fatal("fresh event must not be a duplicate")
	}
	if fp == "" {
		t.Fatal("expected a fingerprint")
	}

	out := o.DeliverAccepted(context.Background(), ev, fp)
	if !out.AllSucceeded() {
		t.Fatalf("expected success, got %+v", out.Downstreams)
	}
	if out.Fingerprint != fp {
		t.Error("outcome must carry the accepted fingerprint")
	}

	// Even though delivery already ran, the dedup entry persists.
	if _, dup := o.Accept(purchase("ev-2", "TX1")); !dup {
		t.Error("re-submission after delivery must be a duplicate")
	}
}
