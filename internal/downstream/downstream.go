// Package downstream defines the client abstraction for the external
// conversion-tracking endpoints events are forwarded to.
package downstream

import (
	"context"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
)

// Client shapes and sends one event to one downstream. Prepare is pure
// (enrichment + validation + marshaling); Send performs exactly one network
// call and classifies its failure as recoverable or not via the retry
// package's wrappers.
type Client interface {
	Name() string
	// Operation returns the operation class used for retry budgets and
	// circuit breaking, which differs for webhook- and browser-origin
	// events.
	Operation(ev *domain.InboundEvent) string
	Prepare(ev *domain.InboundEvent, ec domain.EnrichmentContext, fingerprint string) ([]byte, error)
	Send(ctx context.Context, body []byte) error
}
