// Package db stores push tokens and alarm history in PostgreSQL.
package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

type Store interface {
	// push tokens
	UpsertPushToken(ctx context.Context, token string, deviceIdentifier *string) (model.PushToken, error)
	ListPushTokens(ctx context.Context) ([]model.PushToken, error)

	// alarm history
	RecordAlarmEvent(ctx context.Context, prayer, kind string, scheduledAt time.Time) error
	ListAlarmEvents(ctx context.Context, limit int) ([]model.AlarmEvent, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}
