package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("azaan")

type lockRecord struct {
	Owner   string    `json:"owner"`
	Expires time.Time `json:"expires"`
}

// BoltStore keeps rebuild state in a local bbolt file.
type BoltStore struct {
	db    *bolt.DB
	clock clockwork.Clock
}

func OpenBolt(path string, clock clockwork.Clock) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state file %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltStore{db: db, clock: clock}, nil
}

func (s *BoltStore) DayKey(context.Context) (string, bool, error) {
	var (
		key string
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(DayKeyName)); v != nil {
			key, ok = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", DayKeyName, err)
	}
	return key, ok, nil
}

func (s *BoltStore) SetDayKey(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(DayKeyName), []byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", DayKeyName, err)
	}
	return nil
}

func (s *BoltStore) AcquireLock(_ context.Context, owner string, ttl time.Duration) error {
	now := s.clock.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if raw := b.Get([]byte(LockName)); raw != nil {
			var held lockRecord
			if err := json.Unmarshal(raw, &held); err == nil && now.Before(held.Expires) {
				return ErrLockContention
			}
		}
		raw, err := json.Marshal(lockRecord{Owner: owner, Expires: now.Add(ttl)})
		if err != nil {
			return err
		}
		return b.Put([]byte(LockName), raw)
	})
	if errors.Is(err, ErrLockContention) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", LockName, err)
	}
	return nil
}

func (s *BoltStore) ReleaseLock(_ context.Context, owner string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		raw := b.Get([]byte(LockName))
		if raw == nil {
			return nil
		}
		var held lockRecord
		if err := json.Unmarshal(raw, &held); err == nil && held.Owner != owner {
			return nil
		}
		return b.Delete([]byte(LockName))
	})
	if err != nil {
		return fmt.Errorf("failed to release %s: %w", LockName, err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
