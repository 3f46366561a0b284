package enrich

import (
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/fingerprint"
)

// AnalyticsDownstream is the name of the analytics collection downstream.
const AnalyticsDownstream = "analytics-api"

var analyticsEventNames = map[domain.EventKind]string{
	domain.KindPurchaseApproved:    "purchase",
	domain.KindPurchaseRefused:     "refund",
	domain.KindCheckoutAbandonment: "abandon_checkout",
	domain.KindViewContent:         "view_item",
	domain.KindInitiateCheckout:    "begin_checkout",
	domain.KindPageView:            "page_view",
}

// AnalyticsEvent is one named event with its parameter map.
type AnalyticsEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// AnalyticsPayload is the analytics collection request body: a client
// identifier, a unix-microsecond timestamp, and a list of events.
type AnalyticsPayload struct {
	ClientID        string           `json:"client_id"`
	TimestampMicros int64            `json:"timestamp_micros"`
	Events          []AnalyticsEvent `json:"events"`
}

// BuildAnalytics produces the analytics-downstream payload for ev. The
// analytics side does not take hashed PII; it matches on the client id, so a
// missing one falls back to a fingerprint-derived stable pseudo-client.
func (e *Enricher) BuildAnalytics(ev *domain.InboundEvent, ec domain.EnrichmentContext, fp string) (*AnalyticsPayload, error) {
	name, ok := analyticsEventNames[ev.Kind]
	if !ok {
		return nil, &ValidationError{Downstream: AnalyticsDownstream, Field: "event_name"}
	}

	m := e.merge(ev, ec)

	if ev.IsPurchase() && m.transactionID == "" {
		return nil, &ValidationError{Downstream: AnalyticsDownstream, Field: "transaction_id"}
	}

	params := map[string]any{
		"engagement_time_msec": 1,
	}
	if m.hasValue {
		params["value"] = m.value
		params["currency"] = m.currency
	} else if ev.Kind == domain.KindInitiateCheckout {
		return nil, &ValidationError{Downstream: AnalyticsDownstream, Field: "value"}
	}
	if m.transactionID != "" {
		params["transaction_id"] = m.transactionID
	}
	if m.contentID != "" {
		params["items"] = []map[string]any{{
			"item_id":   m.contentID,
			"item_name": m.contentName,
		}}
	}
	if m.device.SessionID != "" {
		params["session_id"] = m.device.SessionID
	}
	if m.campaign.Source != "" {
		params["source"] = m.campaign.Source
		params["medium"] = m.campaign.Medium
		params["campaign"] = m.campaign.Name
	}
	if m.device.PageURL != "" {
		params["page_location"] = m.device.PageURL
	}

	clientID := m.device.ClientID
	if clientID == "" {
		clientID = fingerprint.CorrelationID(fp, AnalyticsDownstream)
	}

	return &AnalyticsPayload{
		ClientID:        clientID,
		TimestampMicros: ev.OccurredAt.UTC().UnixMicro(),
		Events:          []AnalyticsEvent{{Name: name, Params: params}},
	}, nil
}
