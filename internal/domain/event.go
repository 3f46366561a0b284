package domain

import (
	"strconv"
	"time"
)

type EventKind string

const (
	KindPurchaseApproved    EventKind = "purchase_approved"
	KindPurchaseRefused     EventKind = "purchase_refused"
	KindCheckoutAbandonment EventKind = "checkout_abandonment"
	KindViewContent         EventKind = "view_content"
	KindInitiateCheckout    EventKind = "initiate_checkout"
	KindPageView            EventKind = "page_view"
)

// KnownKinds lists every kind the relay accepts at the ingestion boundary.
var KnownKinds = map[EventKind]bool{
	KindPurchaseApproved:    true,
	KindPurchaseRefused:     true,
	KindCheckoutAbandonment: true,
	KindViewContent:         true,
	KindInitiateCheckout:    true,
	KindPageView:            true,
}

// InboundEvent is one business occurrence to be forwarded downstream.
// It is constructed at the ingestion boundary and immutable afterwards.
type InboundEvent struct {
	ID         string         `json:"id"`
	Kind       EventKind      `json:"kind"`
	Source     string         `json:"source"` // "webhook" or "browser"
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func (e *InboundEvent) IsPurchase() bool {
	return e.Kind == KindPurchaseApproved || e.Kind == KindPurchaseRefused
}

// TransactionID returns the external transaction identifier, if present.
func (e *InboundEvent) TransactionID() string {
	return e.String("transaction_id")
}

// ContactKey returns the primary contact identifier used for fingerprinting
// and user-context lookups: email first, phone as fallback.
func (e *InboundEvent) ContactKey() string {
	if email := e.String("email"); email != "" {
		return email
	}
	return e.String("phone")
}

// String reads a payload field as a string, tolerating absent or
// differently-typed values.
func (e *InboundEvent) String(key string) string {
	v, ok := e.Payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Float reads a payload field as a float64. JSON numbers decode as float64;
// numeric strings are accepted because some webhook sources send amounts
// quoted.
func (e *InboundEvent) Float(key string) (float64, bool) {
	v, ok := e.Payload[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
