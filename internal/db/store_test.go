package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewStore(sqlx.NewDb(raw, "postgres")), mock
}

func TestUpsertPushToken(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	now := time.Date(2024, time.November, 3, 10, 0, 0, 0, time.UTC)
	device := "pixel-8"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO push_tokens")).
		WithArgs("ExponentPushToken[abc]", device).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "device_identifier", "created_at", "updated_at"}).
			AddRow(7, "ExponentPushToken[abc]", device, now, now))

	pt, err := store.UpsertPushToken(context.Background(), "ExponentPushToken[abc]", &device)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pt.ID)
	require.NotNil(t, pt.DeviceIdentifier)
	assert.Equal(t, "pixel-8", *pt.DeviceIdentifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPushToken_Error(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO push_tokens")).WillReturnError(boom)

	_, err := store.UpsertPushToken(context.Background(), "tok", nil)
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPushTokens(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM push_tokens")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "device_identifier", "created_at", "updated_at"}).
			AddRow(1, "a", nil, now, now).
			AddRow(2, "b", "tablet", now, now))

	tokens, err := store.ListPushTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Nil(t, tokens[0].DeviceIdentifier)
	assert.Equal(t, "b", tokens[1].Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAlarmEvent(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	at := time.Date(2024, time.November, 3, 12, 24, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alarm_events")).
		WithArgs("dhuhr", "delivered", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.RecordAlarmEvent(context.Background(), "dhuhr", "delivered", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAlarmEvents_DefaultLimit(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	at := time.Date(2024, time.November, 3, 12, 24, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alarm_events")).
		WithArgs(defaultEventLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "prayer", "kind", "scheduled_at", "created_at"}).
			AddRow(3, "dhuhr", "tapped", at, at))

	events, err := store.ListAlarmEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "tapped", events[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
