package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

// UpsertPushToken registers token, refreshing its device identifier when
// the token is already known.
func (s *pgStore) UpsertPushToken(ctx context.Context, token string, deviceIdentifier *string) (model.PushToken, error) {
	var pt model.PushToken
	err := s.db.GetContext(ctx, &pt, `
		INSERT INTO push_tokens (token, device_identifier)
		VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE
		SET device_identifier = EXCLUDED.device_identifier, updated_at = NOW()
		RETURNING id, token, device_identifier, created_at, updated_at
		`, token, deviceIdentifier)
	if err != nil {
		log.Error().Err(err).Msg("failed to upsert push token")
		return model.PushToken{}, fmt.Errorf("upsert push token: %w", err)
	}
	return pt, nil
}

func (s *pgStore) ListPushTokens(ctx context.Context) ([]model.PushToken, error) {
	tokens := []model.PushToken{}
	err := s.db.SelectContext(ctx, &tokens, `
		SELECT id, token, device_identifier, created_at, updated_at
		FROM push_tokens
		ORDER BY id
		`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list push tokens")
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	return tokens, nil
}
