package domain

import "time"

// Contact holds identity fields used for downstream PII matching. Values are
// raw here; hashing happens exactly once, inside the enricher.
type Contact struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Campaign carries attribution data captured client-side (UTM parameters and
// platform click identifiers).
type Campaign struct {
	Source  string `json:"utm_source,omitempty"`
	Medium  string `json:"utm_medium,omitempty"`
	Name    string `json:"utm_campaign,omitempty"`
	Content string `json:"utm_content,omitempty"`
	Term    string `json:"utm_term,omitempty"`
	FBC     string `json:"fbc,omitempty"`
	FBP     string `json:"fbp,omitempty"`
	GCLID   string `json:"gclid,omitempty"`
}

// Device describes the originating browser/session.
type Device struct {
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
}

// EnrichmentContext is everything known about the user/session behind an
// event, assembled by collaborators (browser instrumentation, the user
// context store) and passed into the enricher as a value. The delivery core
// never fetches any of it itself.
type EnrichmentContext struct {
	Contact  Contact  `json:"contact"`
	Campaign Campaign `json:"campaign"`
	Device   Device   `json:"device"`
}

// UserContext is the persisted slice of enrichment data keyed by contact
// identifier, written on webhook purchases and read back for later
// browser-origin events.
type UserContext struct {
	ContactKey string    `json:"contact_key"`
	Contact    Contact   `json:"contact"`
	Campaign   Campaign  `json:"campaign"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeliveryRecord is one audit row describing the terminal result of a
// downstream delivery. Advisory, written best-effort.
type DeliveryRecord struct {
	ID          string
	Fingerprint string
	EventID     string
	EventKind   EventKind
	Downstream  string
	Status      DeliveryStatus
	Attempts    int
	Error       string
	LatencyMs   int64
	CreatedAt   time.Time
}
