// Package enrich builds per-downstream outbound payloads from an inbound
// event plus its enrichment context. Builders are pure: no I/O, no clock
// reads beyond the event's own timestamp.
//
// Merge priority, highest first: fields explicit on the event payload,
// persisted user context, hard-coded safe defaults. PII is hashed here,
// exactly once per field; input that already looks like a SHA-256 digest is
// treated as final.
package enrich

import (
	"fmt"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/pii"
)

// DefaultCountry is the hard-coded fallback when neither the event nor the
// stored context carries a country.
const DefaultCountry = "br"

// ValidationError reports a downstream-required field missing after the
// merge. The orchestrator short-circuits before spending a network attempt.
type ValidationError struct {
	Downstream string
	Field      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s payload missing required field %q", e.Downstream, e.Field)
}

type Enricher struct{}

func New() *Enricher {
	return &Enricher{}
}

// merged is the post-priority-merge view of one event's fields, raw (not yet
// hashed).
type merged struct {
	contact  domain.Contact
	campaign domain.Campaign
	device   domain.Device

	value         float64
	hasValue      bool
	currency      string
	contentID     string
	contentName   string
	transactionID string
}

func (e *Enricher) merge(ev *domain.InboundEvent, ec domain.EnrichmentContext) merged {
	m := merged{
		contact:  ec.Contact,
		campaign: ec.Campaign,
		device:   ec.Device,
	}

	// Event-explicit values win over stored context.
	if v := ev.String("email"); v != "" {
		m.contact.Email = v
	}
	if v := ev.String("phone"); v != "" {
		m.contact.Phone = v
	}
	if v := ev.String("first_name"); v != "" {
		m.contact.FirstName = v
	}
	if v := ev.String("last_name"); v != "" {
		m.contact.LastName = v
	}
	if v := ev.String("city"); v != "" {
		m.contact.City = v
	}
	if v := ev.String("state"); v != "" {
		m.contact.State = v
	}
	if v := ev.String("postal_code"); v != "" {
		m.contact.PostalCode = v
	}
	if v := ev.String("country"); v != "" {
		m.contact.Country = v
	}
	if m.contact.Country == "" {
		m.contact.Country = DefaultCountry
	}

	m.value, m.hasValue = ev.Float("amount")
	m.currency = ev.String("currency")
	if m.currency == "" {
		m.currency = "BRL"
	}
	m.contentID = ev.String("product_id")
	m.contentName = ev.String("product_name")
	m.transactionID = ev.TransactionID()

	if v := ev.String("page_url"); v != "" {
		m.device.PageURL = v
	}
	return m
}

// hashField applies the hash-once rule: already-hashed input passes through.
func hashField(v string) string {
	if v == "" {
		return ""
	}
	if pii.IsHashed(v) {
		return v
	}
	return pii.Hash(v)
}

func hashPhoneField(v string) string {
	if v == "" {
		return ""
	}
	if pii.IsHashed(v) {
		return v
	}
	return pii.HashPhone(v)
}

func putIfSet(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
