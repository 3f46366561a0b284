package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
)

type UserContextStore struct {
	db *DB
}

func NewUserContextStore(db *DB) *UserContextStore {
	return &UserContextStore{db: db}
}

func (s *UserContextStore) Get(ctx context.Context, contactKey string) (*domain.UserContext, error) {
	query := `
		SELECT contact_key, contact, campaign, updated_at
		FROM user_contexts
		WHERE contact_key = $1
	`

	var (
		uc           domain.UserContext
		contactJSON  []byte
		campaignJSON []byte
	)
	err := s.db.Pool.QueryRow(ctx, query, contactKey).
		Scan(&uc.ContactKey, &contactJSON, &campaignJSON, &uc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user context: %w", err)
	}

	if err := json.Unmarshal(contactJSON, &uc.Contact); err != nil {
		return nil, fmt.Errorf("unmarshal contact: %w", err)
	}
	if err := json.Unmarshal(campaignJSON, &uc.Campaign); err != nil {
		return nil, fmt.Errorf("unmarshal campaign: %w", err)
	}
	return &uc, nil
}

func (s *UserContextStore) Upsert(ctx context.Context, uc *domain.UserContext) error {
	contactJSON, err := json.Marshal(uc.Contact)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	campaignJSON, err := json.Marshal(uc.Campaign)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}

	query := `
		INSERT INTO user_contexts (contact_key, contact, campaign, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contact_key) DO UPDATE
		SET contact = EXCLUDED.contact, campaign = EXCLUDED.campaign, updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.Pool.Exec(ctx, query, uc.ContactKey, contactJSON, campaignJSON, uc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user context: %w", err)
	}
	return nil
}
