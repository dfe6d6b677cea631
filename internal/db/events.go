package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

const defaultEventLimit = 50

func (s *pgStore) RecordAlarmEvent(ctx context.Context, prayer, kind string, scheduledAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alarm_events (prayer, kind, scheduled_at)
		VALUES ($1, $2, $3)
		`, prayer, kind, scheduledAt)
	if err != nil {
		log.Error().Err(err).Str("prayer", prayer).Msg("failed to record alarm event")
		return fmt.Errorf("record alarm event: %w", err)
	}
	return nil
}

// ListAlarmEvents returns the most recent events first.
func (s *pgStore) ListAlarmEvents(ctx context.Context, limit int) ([]model.AlarmEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events := []model.AlarmEvent{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT id, prayer, kind, scheduled_at, created_at
		FROM alarm_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
		`, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list alarm events")
		return nil, fmt.Errorf("list alarm events: %w", err)
	}
	return events, nil
}
