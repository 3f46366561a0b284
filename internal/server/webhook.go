package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
)

// webhookRequest is the platform webhook body: an event name plus a data
// object. Purchase platforms nest buyer/purchase objects; normalizeData
// flattens the fields the enricher understands.
type webhookRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// webhookKinds maps the platform's event names onto inbound kinds.
var webhookKinds = map[string]domain.EventKind{
	"PURCHASE_APPROVED":    domain.KindPurchaseApproved,
	"PURCHASE_REFUSED":     domain.KindPurchaseRefused,
	"PURCHASE_CANCELED":    domain.KindPurchaseRefused,
	"CHECKOUT_ABANDONMENT": domain.KindCheckoutAbandonment,
}

func (s *Server) handleWebhook(c *gin.Context) {
	if !s.validWebhookSecret(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	kind, ok := webhookKinds[req.Event]
	if !ok {
		// Unknown lifecycle events are acknowledged and dropped so the
		// platform does not retry them forever.
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "event": req.Event})
		return
	}

	ev := &domain.InboundEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		Source:     "webhook",
		OccurredAt: time.Now().UTC(),
		Payload:    normalizeData(req.Data),
	}

	ctx := logging.WithEvent(c.Request.Context(), ev.ID, string(ev.Kind))
	fp, duplicate, _ := s.accept(ctx, ev)

	if duplicate {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "fingerprint": fp})
		return
	}

	s.persistUserContext(ctx, ev)

	c.JSON(http.StatusOK, gin.H{"status": "accepted", "event_id": ev.ID, "fingerprint": fp})
}

// normalizeData flattens the platform's nested buyer/purchase objects into
// the flat payload keys the core uses.
func normalizeData(data map[string]any) map[string]any {
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}

	if buyer, ok := data["buyer"].(map[string]any); ok {
		copyKey(payload, buyer, "email", "email")
		copyKey(payload, buyer, "checkout_phone", "phone")
		copyKey(payload, buyer, "first_name", "first_name")
		copyKey(payload, buyer, "last_name", "last_name")
		if addr, ok := buyer["address"].(map[string]any); ok {
			copyKey(payload, addr, "city", "city")
			copyKey(payload, addr, "state", "state")
			copyKey(payload, addr, "zipcode", "postal_code")
			copyKey(payload, addr, "country_iso", "country")
		}
		delete(payload, "buyer")
	}

	if purchase, ok := data["purchase"].(map[string]any); ok {
		copyKey(payload, purchase, "transaction", "transaction_id")
		if price, ok := purchase["price"].(map[string]any); ok {
			copyKey(payload, price, "value", "amount")
			copyKey(payload, price, "currency_value", "currency")
		}
		delete(payload, "purchase")
	}

	if product, ok := data["product"].(map[string]any); ok {
		copyKey(payload, product, "id", "product_id")
		copyKey(payload, product, "name", "product_name")
		delete(payload, "product")
	}

	return payload
}

func copyKey(dst map[string]any, src map[string]any, from, to string) {
	if v, ok := src[from]; ok && v != nil {
		dst[to] = v
	}
}

// persistUserContext stores contact and campaign data from purchase events
// so later browser-origin events from the same user can be enriched.
// Best-effort, off the request path.
func (s *Server) persistUserContext(ctx context.Context, ev *domain.InboundEvent) {
	if s.users == nil || !ev.IsPurchase() {
		return
	}
	key := ev.ContactKey()
	if key == "" {
		return
	}

	uc := &domain.UserContext{
		ContactKey: key,
		Contact: domain.Contact{
			Email:      ev.String("email"),
			Phone:      ev.String("phone"),
			FirstName:  ev.String("first_name"),
			LastName:   ev.String("last_name"),
			City:       ev.String("city"),
			State:      ev.String("state"),
			PostalCode: ev.String("postal_code"),
			Country:    ev.String("country"),
		},
		Campaign: domain.Campaign{
			Source: ev.String("utm_source"),
			Medium: ev.String("utm_medium"),
			Name:   ev.String("utm_campaign"),
		},
		UpdatedAt: time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.users.Upsert(ctx, uc); err != nil {
			logging.FromContext(ctx).Warn("failed to persist user context",
				slog.String("code", "DB_ERROR"), slog.Any("error", err))
		}
	}()
}
