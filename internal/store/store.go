package store

import (
	"context"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
)

// UserContextStore persists contact/campaign context keyed by the primary
// contact identifier. Written on webhook purchases, read back to enrich
// later events from the same user.
type UserContextStore interface {
	Get(ctx context.Context, contactKey string) (*domain.UserContext, error)
	Upsert(ctx context.Context, uc *domain.UserContext) error
}

// DeliveryLogStore records terminal per-downstream delivery results.
// Advisory audit trail; writes are best-effort.
type DeliveryLogStore interface {
	Record(ctx context.Context, rec *domain.DeliveryRecord) error
}
