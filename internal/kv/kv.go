// Package kv persists the last rebuilt day and the advisory rebuild lock.
package kv

import (
	"context"
	"errors"
	"time"
)

const (
	DayKeyName = "azaan:prev-day-key"
	LockName   = "azaan:prev-day-lock"
)

// ErrLockContention means another rebuild holds the lock. Callers treat it
// as a no-op.
var ErrLockContention = errors.New("rebuild lock held by another owner")

// Store is durable key-value storage for rebuild state. The lock is
// advisory: it expires after its TTL even if never released.
type Store interface {
	// DayKey returns the last committed day key, ok false when none was
	// ever written.
	DayKey(ctx context.Context) (key string, ok bool, err error)
	SetDayKey(ctx context.Context, key string) error
	// AcquireLock takes the lock for owner. It returns ErrLockContention
	// when someone else holds an unexpired lock.
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) error
	// ReleaseLock drops the lock if owner still holds it.
	ReleaseLock(ctx context.Context, owner string) error
	Close() error
}
