package enrich

import (
	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/fingerprint"
)

// AdsDownstream is the name of the ads-attribution conversions downstream.
const AdsDownstream = "ads-api"

// adsEventNames maps inbound kinds to the conversion event names the ads
// platform matches on.
var adsEventNames = map[domain.EventKind]string{
	domain.KindPurchaseApproved:    "Purchase",
	domain.KindPurchaseRefused:     "PurchaseRefused",
	domain.KindCheckoutAbandonment: "CheckoutAbandoned",
	domain.KindViewContent:         "ViewContent",
	domain.KindInitiateCheckout:    "InitiateCheckout",
	domain.KindPageView:            "PageView",
}

// adsValueRequired lists kinds whose ads payload must carry a monetary
// amount and currency.
var adsValueRequired = map[domain.EventKind]bool{
	domain.KindPurchaseApproved: true,
	domain.KindPurchaseRefused:  true,
	domain.KindInitiateCheckout: true,
}

// AdsPayload is one event shaped for the ads conversions endpoint. UserData
// carries only hashed PII; raw forms never travel alongside.
type AdsPayload struct {
	EventName      string            `json:"event_name"`
	EventID        string            `json:"event_id"`
	EventTime      int64             `json:"event_time"`
	ActionSource   string            `json:"action_source"`
	EventSourceURL string            `json:"event_source_url,omitempty"`
	UserData       map[string]string `json:"user_data"`
	CustomData     map[string]any    `json:"custom_data,omitempty"`
}

// BuildAds produces the ads-downstream payload for ev, or a ValidationError
// when a required field is absent after the merge.
func (e *Enricher) BuildAds(ev *domain.InboundEvent, ec domain.EnrichmentContext, fp string) (*AdsPayload, error) {
	name, ok := adsEventNames[ev.Kind]
	if !ok {
		return nil, &ValidationError{Downstream: AdsDownstream, Field: "event_name"}
	}

	m := e.merge(ev, ec)

	if adsValueRequired[ev.Kind] && !m.hasValue {
		return nil, &ValidationError{Downstream: AdsDownstream, Field: "value"}
	}
	if ev.IsPurchase() && m.transactionID == "" {
		return nil, &ValidationError{Downstream: AdsDownstream, Field: "transaction_id"}
	}

	userData := make(map[string]string)
	putIfSet(userData, "em", hashField(m.contact.Email))
	putIfSet(userData, "ph", hashPhoneField(m.contact.Phone))
	putIfSet(userData, "fn", hashField(m.contact.FirstName))
	putIfSet(userData, "ln", hashField(m.contact.LastName))
	putIfSet(userData, "ct", hashField(m.contact.City))
	putIfSet(userData, "st", hashField(m.contact.State))
	putIfSet(userData, "zp", hashField(m.contact.PostalCode))
	putIfSet(userData, "country", hashField(m.contact.Country))
	// Click ids, client IP and user agent are matched raw by the platform.
	putIfSet(userData, "fbc", m.campaign.FBC)
	putIfSet(userData, "fbp", m.campaign.FBP)
	putIfSet(userData, "client_ip_address", m.device.IP)
	putIfSet(userData, "client_user_agent", m.device.UserAgent)

	custom := make(map[string]any)
	if m.hasValue {
		custom["value"] = m.value
		custom["currency"] = m.currency
	}
	if m.contentID != "" {
		custom["content_ids"] = []string{m.contentID}
	}
	if m.contentName != "" {
		custom["content_name"] = m.contentName
	}
	if m.transactionID != "" {
		custom["order_id"] = m.transactionID
	}
	if m.campaign.Source != "" {
		custom["utm_source"] = m.campaign.Source
		custom["utm_medium"] = m.campaign.Medium
		custom["utm_campaign"] = m.campaign.Name
	}

	actionSource := "website"
	if ev.Source == "webhook" {
		actionSource = "system_generated"
	}

	return &AdsPayload{
		EventName:      name,
		EventID:        fingerprint.CorrelationID(fp, AdsDownstream),
		EventTime:      ev.OccurredAt.UTC().Unix(),
		ActionSource:   actionSource,
		EventSourceURL: m.device.PageURL,
		UserData:       userData,
		CustomData:     custom,
	}, nil
}
