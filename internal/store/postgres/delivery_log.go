package postgres

import (
	"context"
	"fmt"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
)

type DeliveryLogStore struct {
	db *DB
}

func NewDeliveryLogStore(db *DB) *DeliveryLogStore {
	return &DeliveryLogStore{db: db}
}

func (s *DeliveryLogStore) Record(ctx context.Context, rec *domain.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_log (id, fingerprint, event_id, event_kind, downstream, status, attempts, error, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Pool.Exec(ctx, query,
		rec.ID,
		rec.Fingerprint,
		rec.EventID,
		rec.EventKind,
		rec.Downstream,
		rec.Status,
		rec.Attempts,
		rec.Error,
		rec.LatencyMs,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}

	return nil
}
