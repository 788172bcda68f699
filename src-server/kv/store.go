// Package kv is the device-local key-value store: plain text keys mapped to
// text values with per-key atomic writes and nothing else.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planner/src-server/model"

	"github.com/uptrace/bun"
)

// Pair is one key with its value as returned by MultiGet.
type Pair struct {
	Key   string
	Value string
}

type Store interface {
	// Get reports ok=false for a missing key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// MultiGet returns pairs in the order of keys, skipping missing keys.
	MultiGet(ctx context.Context, keys []string) ([]Pair, error)
	GetAllKeys(ctx context.Context) ([]string, error)
	RemoveItem(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
}

// Observer receives latencies of store round trips.
type Observer interface {
	ObserveRead(d time.Duration)
	ObserveWrite(d time.Duration)
}

type BunStore struct {
	db       bun.IDB
	observer Observer
}

var _ Store = (*BunStore)(nil)

// NewBunStore wraps a bun database. observer may be nil.
func NewBunStore(db bun.IDB, observer Observer) *BunStore {
	return &BunStore{db: db, observer: observer}
}

func (s *BunStore) read(start time.Time) {
	if s.observer != nil {
		s.observer.ObserveRead(time.Since(start))
	}
}

func (s *BunStore) write(start time.Time) {
	if s.observer != nil {
		s.observer.ObserveWrite(time.Since(start))
	}
}

func (s *BunStore) Get(ctx context.Context, key string) (string, bool, error) {
	defer s.read(time.Now())
	entry := new(model.KVEntry)
	if err := s.db.NewSelect().
		Model(entry).
		Where("entry_key = ?", key).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("BunStore.Get: %w", err)
	}
	return entry.Value, true, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("BunStore.Set: key is blank")
	}
	defer s.write(time.Now())
	entry := &model.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (entry_key) DO UPDATE").
		Set("entry_value = EXCLUDED.entry_value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("BunStore.Set: %w", err)
	}
	return nil
}

func (s *BunStore) MultiGet(ctx context.Context, keys []string) ([]Pair, error) {
	if len(keys) == 0 {
		return []Pair{}, nil
	}
	defer s.read(time.Now())
	entries := make([]model.KVEntry, 0, len(keys))
	if err := s.db.NewSelect().
		Model(&entries).
		Where("entry_key IN (?)", bun.In(keys)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("BunStore.MultiGet: %w", err)
	}
	byKey := make(map[string]string, len(entries))
	for _, entry := range entries {
		byKey[entry.Key] = entry.Value
	}
	pairs := make([]Pair, 0, len(entries))
	for _, key := range keys {
		if value, ok := byKey[key]; ok {
			pairs = append(pairs, Pair{Key: key, Value: value})
		}
	}
	return pairs, nil
}

func (s *BunStore) GetAllKeys(ctx context.Context) ([]string, error) {
	defer s.read(time.Now())
	keys := make([]string, 0)
	if err := s.db.NewSelect().
		Model((*model.KVEntry)(nil)).
		Column("entry_key").
		Order("entry_key ASC").
		Scan(ctx, &keys); err != nil {
		return nil, fmt.Errorf("BunStore.GetAllKeys: %w", err)
	}
	return keys, nil
}

func (s *BunStore) RemoveItem(ctx context.Context, key string) error {
	defer s.write(time.Now())
	if _, err := s.db.NewDelete().
		Model((*model.KVEntry)(nil)).
		Where("entry_key = ?", key).
		Exec(ctx); err != nil {
		return fmt.Errorf("BunStore.RemoveItem: %w", err)
	}
	return nil
}

func (s *BunStore) MultiRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	defer s.write(time.Now())
	if _, err := s.db.NewDelete().
		Model((*model.KVEntry)(nil)).
		Where("entry_key IN (?)", bun.In(keys)).
		Exec(ctx); err != nil {
		return fmt.Errorf("BunStore.MultiRemove: %w", err)
	}
	return nil
}
