package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marconicastro/zeropragas-sub000/internal/breaker"
	"github.com/marconicastro/zeropragas-sub000/internal/config"
	"github.com/marconicastro/zeropragas-sub000/internal/dedup"
	"github.com/marconicastro/zeropragas-sub000/internal/delivery"
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream"
	"github.com/marconicastro/zeropragas-sub000/internal/events"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
	"github.com/marconicastro/zeropragas-sub000/internal/security"
)

const (
	testSecret = "hook-secret"
	testAPIKey = "zp_testkey123"
)

type nullClient struct {
	mu    sync.Mutex
	sends int
}

func (n *nullClient) Name() string                            { return "ads-api" }
func (n *nullClient) Operation(_ *domain.InboundEvent) string { return retry.OpSendToAdsAPI }
func (n *nullClient) Prepare(_ *domain.InboundEvent, _ domain.EnrichmentContext, _ string) ([]byte, error) {
	return []byte(`{}`), nil
}
func (n *nullClient) Send(context.Context, []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends++
	return nil
}

type nullProvider struct{}

func (nullProvider) Context(context.Context, *domain.InboundEvent) (domain.EnrichmentContext, error) {
	return domain.EnrichmentContext{}, nil
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.WebhookSecret = testSecret

	exec := retry.NewExecutor(nil, breaker.NewRegistry())
	orch := delivery.NewOrchestrator(
		dedup.New(5*time.Minute, 1000), exec, nullProvider{},
		[]downstream.Client{&nullClient{}},
	)
	keyHashes := map[string]bool{security.HashKey(testAPIKey): true}

	s := New(cfg, orch, nil, nil, events.NewHub(), keyHashes)
	return s, s.Router()
}

func postJSON(r *gin.Engine, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func webhookBody(txID string) map[string]any {
	return map[string]any{
		"event": "PURCHASE_APPROVED",
		"data": map[string]any{
			"buyer": map[string]any{
				"email":          "buyer@example.com",
				"checkout_phone": "11987654321",
			},
			"purchase": map[string]any{
				"transaction": txID,
				"price":       map[string]any{"value": 297.0, "currency_value": "BRL"},
			},
		},
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	_, r := newTestServer(t)

	w := postJSON(r, "/webhook/checkout?secret=wrong", nil, webhookBody("TX1"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad secret, got %d", w.Code)
	}

	w = postJSON(r, "/webhook/checkout", nil, webhookBody("TX1"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a missing secret, got %d", w.Code)
	}
}

func TestWebhookAcceptsValidEvent(t *testing.T) {
	_, r := newTestServer(t)

	w := postJSON(r, "/webhook/checkout?secret="+testSecret, nil, webhookBody("TX1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "accepted" {
		t.Errorf("expected accepted status, got %v", resp["status"])
	}
	if resp["fingerprint"] == "" {
		t.Error("expected a fingerprint in the response")
	}
}

func TestWebhookSecretInHeader(t *testing.T) {
	_, r := newTestServer(t)

	w := postJSON(r, "/webhook/checkout", map[string]string{"X-Webhook-Token": testSecret}, webhookBody("TX1"))
	if w.Code != http.StatusOK {
		t.Errorf("expected header-borne secret to authenticate, got %d", w.Code)
	}
}

func TestWebhookDuplicateAcknowledged(t *testing.T) {
	_, r := newTestServer(t)

	postJSON(r, "/webhook/checkout?secret="+testSecret, nil, webhookBody("TX1"))
	w := postJSON(r, "/webhook/checkout?secret="+testSecret, nil, webhookBody("TX1"))

	if w.Code != http.StatusOK {
		t.Fatalf("duplicates are acknowledged with 200, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "duplicate" {
		t.Errorf("expected duplicate status, got %v", resp["status"])
	}
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	_, r := newTestServer(t)

	body := map[string]any{"event": "SUBSCRIPTION_RENEWED", "data": map[string]any{}}
	w := postJSON(r, "/webhook/checkout?secret="+testSecret, nil, body)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown events are acked so the platform stops retrying, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ignored" {
		t.Errorf("expected ignored status, got %v", resp["status"])
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/checkout?secret="+testSecret, bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBrowserEventRequiresAPIKey(t *testing.T) {
	_, r := newTestServer(t)

	body := map[string]any{"kind": "page_view", "payload": map[string]any{}}
	if w := postJSON(r, "/v1/events", nil, body); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
	if w := postJSON(r, "/v1/events", map[string]string{"X-API-Key": "nope"}, body); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a wrong key, got %d", w.Code)
	}
}

func TestBrowserEventAccepted(t *testing.T) {
	_, r := newTestServer(t)

	body := map[string]any{
		"kind": "view_content",
		"payload": map[string]any{
			"email":      "viewer@example.com",
			"product_id": "curso-trips",
		},
	}
	w := postJSON(r, "/v1/events", map[string]string{"X-API-Key": testAPIKey}, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBrowserEventUnknownKind(t *testing.T) {
	_, r := newTestServer(t)

	body := map[string]any{"kind": "mystery", "payload": map[string]any{}}
	w := postJSON(r, "/v1/events", map[string]string{"X-API-Key": testAPIKey}, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", w.Code)
	}
}

func TestBrowserEventBadTimestamp(t *testing.T) {
	_, r := newTestServer(t)

	body := map[string]any{"kind": "page_view", "occurred_at": "yesterday", "payload": map[string]any{}}
	w := postJSON(r, "/v1/events", map[string]string{"X-API-Key": testAPIKey}, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad timestamp, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap domain.StatsSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("stats response is not a snapshot: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header on every response")
	}
}

func TestNormalizeDataFlattensNests(t *testing.T) {
	data := map[string]any{
		"buyer": map[string]any{
			"email":          "buyer@example.com",
			"checkout_phone": "11987654321",
			"address": map[string]any{
				"city":        "Campinas",
				"zipcode":     "13000-000",
				"country_iso": "BR",
			},
		},
		"purchase": map[string]any{
			"transaction": "TX9",
			"price":       map[string]any{"value": 99.9, "currency_value": "BRL"},
		},
		"product": map[string]any{"id": "sku-1", "name": "Curso"},
	}

	p := normalizeData(data)

	want := map[string]any{
		"email":          "buyer@example.com",
		"phone":          "11987654321",
		"city":           "Campinas",
		"postal_code":    "13000-000",
		"country":        "BR",
		"transaction_id": "TX9",
		"amount":         99.9,
		"currency":       "BRL",
		"product_id":     "sku-1",
		"product_name":   "Curso",
	}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("payload[%q] = %v, want %v", k, p[k], v)
		}
	}
	for _, k := range []string{"buyer", "purchase", "product"} {
		if _, ok := p[k]; ok {
			t.Errorf("nested object %q must be flattened away", k)
		}
	}
}
