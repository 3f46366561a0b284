// Package analytics delivers events to the analytics collection endpoint.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/enrich"
	"github.com/marconicastro/zeropragas-sub000/internal/httpclient"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
)

const DefaultAPIBase = "https://www.google-analytics.com"

type Config struct {
	MeasurementID string
	APISecret     string
	APIBase       string
}

type Client struct {
	cfg      Config
	http     *httpclient.Client
	enricher *enrich.Enricher
}

func New(cfg Config, http *httpclient.Client, enricher *enrich.Enricher) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return &Client{cfg: cfg, http: http, enricher: enricher}
}

func (c *Client) Name() string { return enrich.AnalyticsDownstream }

func (c *Client) Operation(ev *domain.InboundEvent) string {
	if ev.Source == "browser" {
		return retry.OpBrowserSendToAnalyticsAPI
	}
	return retry.OpSendToAnalyticsAPI
}

func (c *Client) Prepare(ev *domain.InboundEvent, ec domain.EnrichmentContext, fingerprint string) ([]byte, error) {
	payload, err := c.enricher.BuildAnalytics(ev, ec, fingerprint)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal analytics payload: %w", err)
	}
	return body, nil
}

func (c *Client) Send(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		c.cfg.APIBase, c.cfg.MeasurementID, c.cfg.APISecret)

	resp, err := c.http.Post(ctx, url, body)
	if err != nil {
		return retry.Recoverable(fmt.Errorf("analytics request: %w", err))
	}
	if resp.OK() {
		return nil
	}
	if resp.Retryable() {
		return retry.Recoverable(fmt.Errorf("analytics status %d: %s", resp.StatusCode, resp.Body))
	}
	return retry.NonRecoverable(fmt.Errorf("analytics status %d: %s", resp.StatusCode, resp.Body))
}
