// Package adsapi delivers conversion events to the ads-attribution HTTP API.
package adsapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/enrich"
	"github.com/marconicastro/zeropragas-sub000/internal/httpclient"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
)

const DefaultAPIBase = "https://graph.facebook.com/v19.0"

type Config struct {
	PixelID       string
	AccessToken   string
	APIBase       string
	TestEventCode string
}

type Client struct {
	cfg      Config
	http     *httpclient.Client
	enricher *enrich.Enricher
}

// request is the endpoint's envelope: one event per call.
type request struct {
	Data          []*enrich.AdsPayload `json:"data"`
	TestEventCode string               `json:"test_event_code,omitempty"`
}

func New(cfg Config, http *httpclient.Client, enricher *enrich.Enricher) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return &Client{cfg: cfg, http: http, enricher: enricher}
}

func (c *Client) Name() string { return enrich.AdsDownstream }

func (c *Client) Operation(ev *domain.InboundEvent) string {
	if ev.Source == "browser" {
		return retry.OpBrowserSendToAdsAPI
	}
	return retry.OpSendToAdsAPI
}

func (c *Client) Prepare(ev *domain.InboundEvent, ec domain.EnrichmentContext, fingerprint string) ([]byte, error) {
	payload, err := c.enricher.BuildAds(ev, ec, fingerprint)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(request{Data: []*enrich.AdsPayload{payload}, TestEventCode: c.cfg.TestEventCode})
	if err != nil {
		return nil, fmt.Errorf("marshal ads payload: %w", err)
	}
	return body, nil
}

func (c *Client) Send(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/%s/events?access_token=%s", c.cfg.APIBase, c.cfg.PixelID, c.cfg.AccessToken)

	resp, err := c.http.Post(ctx, url, body)
	if err != nil {
		return retry.Recoverable(fmt.Errorf("ads api request: %w", err))
	}
	if resp.OK() {
		return nil
	}
	if resp.Retryable() {
		return retry.Recoverable(fmt.Errorf("ads api status %d: %s", resp.StatusCode, resp.Body))
	}
	return retry.NonRecoverable(fmt.Errorf("ads api status %d: %s", resp.StatusCode, resp.Body))
}
