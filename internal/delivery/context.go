package delivery

import (
	"context"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/store"
)

// ContextProvider assembles the enrichment context for one event. The
// delivery core only ever receives context as a value; it never reaches out
// to browsers, cookies, or geo services itself.
type ContextProvider interface {
	Context(ctx context.Context, ev *domain.InboundEvent) (domain.EnrichmentContext, error)
}

// CompositeProvider builds context from the event payload (browser-side
// instrumentation attaches UTM/device/session data there) and fills gaps
// from the persisted user-context store when one is configured.
type CompositeProvider struct {
	Users store.UserContextStore // optional
}

func (p *CompositeProvider) Context(ctx context.Context, ev *domain.InboundEvent) (domain.EnrichmentContext, error) {
	ec := fromPayload(ev)

	if p.Users == nil {
		return ec, nil
	}
	key := ev.ContactKey()
	if key == "" {
		return ec, nil
	}

	stored, err := p.Users.Get(ctx, key)
	if err != nil {
		return ec, err
	}
	if stored == nil {
		return ec, nil
	}

	fillContact(&ec.Contact, stored.Contact)
	fillCampaign(&ec.Campaign, stored.Campaign)
	return ec, nil
}

func fromPayload(ev *domain.InboundEvent) domain.EnrichmentContext {
	return domain.EnrichmentContext{
		Campaign: domain.Campaign{
			Source:  ev.String("utm_source"),
			Medium:  ev.String("utm_medium"),
			Name:    ev.String("utm_campaign"),
			Content: ev.String("utm_content"),
			Term:    ev.String("utm_term"),
			FBC:     ev.String("fbc"),
			FBP:     ev.String("fbp"),
			GCLID:   ev.String("gclid"),
		},
		Device: domain.Device{
			UserAgent: ev.String("user_agent"),
			IP:        ev.String("client_ip"),
			ClientID:  ev.String("client_id"),
			SessionID: ev.String("session_id"),
			PageURL:   ev.String("page_url"),
		},
	}
}

// fillContact copies stored values into empty fields only: event-supplied
// data always wins over persisted context.
func fillContact(dst *domain.Contact, src domain.Contact) {
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.FirstName == "" {
		dst.FirstName = src.FirstName
	}
	if dst.LastName == "" {
		dst.LastName = src.LastName
	}
	if dst.City == "" {
		dst.City = src.City
	}
	if dst.State == "" {
		dst.State = src.State
	}
	if dst.PostalCode == "" {
		dst.PostalCode = src.PostalCode
	}
	if dst.Country == "" {
		dst.Country = src.Country
	}
}

func fillCampaign(dst *domain.Campaign, src domain.Campaign) {
	if dst.Source == "" {
		dst.Source = src.Source
	}
	if dst.Medium == "" {
		dst.Medium = src.Medium
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Content == "" {
		dst.Content = src.Content
	}
	if dst.Term == "" {
		dst.Term = src.Term
	}
	if dst.FBC == "" {
		dst.FBC = src.FBC
	}
	if dst.FBP == "" {
		dst.FBP = src.FBP
	}
	if dst.GCLID == "" {
		dst.GCLID = src.GCLID
	}
}
