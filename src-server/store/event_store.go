// Package store keeps calendar events in the device key-value store.
//
// Every event lives under event:<id>. A date index entry
// event-<date>-<startMillis>-<id> points at it so a day can be listed with a
// key prefix scan, and repeating events are also listed under repeat:<id> so
// their occurrences can be expanded into any day.
package store

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"planner/src-server/kv"
	"planner/src-server/model"
)

// MAX_RANGE_DAYS bounds LoadRange, enough for a month view with padding.
const MAX_RANGE_DAYS = 62

type EventStore struct {
	kv  kv.Store
	loc *time.Location
	now func() time.Time

	// serialises multi-key writes so an index never outlives its record
	mu sync.RWMutex
}

// NewEventStore stores events in kv. Calendar dates are taken in loc.
func NewEventStore(store kv.Store, loc *time.Location) *EventStore {
	if loc == nil {
		loc = time.Local
	}
	return &EventStore{kv: store, loc: loc, now: time.Now}
}

// SetClock replaces the clock used for createdAt/updatedAt.
func (s *EventStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *EventStore) Location() *time.Location {
	return s.loc
}

// ParseDate parses a YYYY-MM-DD date in the store's location.
func (s *EventStore) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

func (s *EventStore) writeRecord(ctx context.Context, e *model.EventItem) error {
	raw, err := e.Marshal()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, primaryKey(e.ID), raw); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, indexKey(e.DateKey(s.loc), e.StartDate, e.ID), e.ID); err != nil {
		return err
	}
	if e.RepeatOption != nil {
		return s.kv.Set(ctx, repeatKey(e.ID), e.ID)
	}
	return s.kv.RemoveItem(ctx, repeatKey(e.ID))
}

func (s *EventStore) read(ctx context.Context, id string) (*model.EventItem, error) {
	raw, ok, err := s.kv.Get(ctx, primaryKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	e, err := model.UnmarshalEventItem(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", primaryKey(id), err)
	}
	return e, nil
}

// Save validates and stores a new event, assigning its id when blank.
func (s *EventStore) Save(ctx context.Context, e *model.EventItem) error {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return fmt.Errorf("EventStore.Save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if _, ok, err := s.kv.Get(ctx, primaryKey(e.ID)); err != nil {
		return fmt.Errorf("EventStore.Save: %w", err)
	} else if ok {
		return fmt.Errorf("EventStore.Save: %w: %s", ErrEventExists, e.ID)
	}
	now := s.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.writeRecord(ctx, e); err != nil {
		return fmt.Errorf("EventStore.Save: %w", err)
	}
	slog.Debug("event saved", "id", e.ID, "date", e.DateKey(s.loc))
	return nil
}

func (s *EventStore) Get(ctx context.Context, id string) (*model.EventItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("EventStore.Get: %w", err)
	}
	return e, nil
}

// Update replaces an existing event. Moving the start drops the old date
// index entry.
func (s *EventStore) Update(ctx context.Context, e *model.EventItem) error {
	if e.ID == "" {
		return fmt.Errorf("EventStore.Update: %w: blank id", ErrEventNotFound)
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return fmt.Errorf("EventStore.Update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.read(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("EventStore.Update: %w", err)
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.now().UTC()

	if err := s.writeRecord(ctx, e); err != nil {
		return fmt.Errorf("EventStore.Update: %w", err)
	}
	oldIndex := indexKey(old.DateKey(s.loc), old.StartDate, old.ID)
	if oldIndex != indexKey(e.DateKey(s.loc), e.StartDate, e.ID) {
		if err := s.kv.RemoveItem(ctx, oldIndex); err != nil {
			return fmt.Errorf("EventStore.Update: can't drop old index: %w", err)
		}
	}
	return nil
}

// UpdateMemo rewrites only the memo of an event.
func (s *EventStore) UpdateMemo(ctx context.Context, id, memo string) (*model.EventItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("EventStore.UpdateMemo: %w", err)
	}
	e.Memo = memo
	e.Normalize()
	e.UpdatedAt = s.now().UTC()

	raw, err := e.Marshal()
	if err != nil {
		return nil, fmt.Errorf("EventStore.UpdateMemo: %w", err)
	}
	if err := s.kv.Set(ctx, primaryKey(e.ID), raw); err != nil {
		return nil, fmt.Errorf("EventStore.UpdateMemo: %w", err)
	}
	return e, nil
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.read(ctx, id)
	if err != nil {
		return fmt.Errorf("EventStore.Delete: %w", err)
	}
	if err := s.kv.MultiRemove(ctx, []string{
		indexKey(e.DateKey(s.loc), e.StartDate, e.ID),
		repeatKey(e.ID),
		primaryKey(e.ID),
	}); err != nil {
		return fmt.Errorf("EventStore.Delete: %w", err)
	}
	slog.Debug("event deleted", "id", id)
	return nil
}

// DeleteAll removes every event and index entry, returning how many events
// were removed. Keys that don't belong to events are left alone.
func (s *EventStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.GetAllKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("EventStore.DeleteAll: %w", err)
	}
	toRemove := make([]string, 0, len(keys))
	count := 0
	for _, key := range keys {
		if !isEventKey(key) {
			continue
		}
		if strings.HasPrefix(key, primaryPrefix) {
			count++
		}
		toRemove = append(toRemove, key)
	}
	if err := s.kv.MultiRemove(ctx, toRemove); err != nil {
		return 0, fmt.Errorf("EventStore.DeleteAll: %w", err)
	}
	return count, nil
}

// LoadForDate lists the events starting on date (YYYY-MM-DD), including
// occurrences of repeating events, ordered by start then title.
func (s *EventStore) LoadForDate(ctx context.Context, date string) ([]model.EventItem, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("EventStore.LoadForDate: %w", err)
	}
	byDate, err := s.load(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("EventStore.LoadForDate: %w", err)
	}
	return byDate[date], nil
}

// LoadRange lists events per date for every date in [from, to].
func (s *EventStore) LoadRange(ctx context.Context, from, to string) (map[string][]model.EventItem, error) {
	fromDay, err := s.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("EventStore.LoadRange: %w", err)
	}
	toDay, err := s.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("EventStore.LoadRange: %w", err)
	}
	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("EventStore.LoadRange: %w: %s is before %s", ErrInvalidDate, to, from)
	}
	if toDay.After(fromDay.AddDate(0, 0, MAX_RANGE_DAYS-1)) {
		return nil, fmt.Errorf("EventStore.LoadRange: %w: %s to %s", ErrRangeTooLong, from, to)
	}
	byDate, err := s.load(ctx, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("EventStore.LoadRange: %w", err)
	}
	return byDate, nil
}

// dateRange lists the calendar dates from..to. Stepping with AddDate keeps
// DST days at one entry each.
func dateRange(from, to time.Time) []string {
	dates := make([]string, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(time.DateOnly))
	}
	return dates
}

func (s *EventStore) load(ctx context.Context, from, to time.Time) (map[string][]model.EventItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate := make(map[string][]model.EventItem)
	for _, date := range dateRange(from, to) {
		byDate[date] = make([]model.EventItem, 0)
	}

	keys, err := s.kv.GetAllKeys(ctx)
	if err != nil {
		return nil, err
	}
	indexKeys := make([]string, 0)
	repeatKeys := make([]string, 0)
	for _, key := range keys {
		if date, ok := indexDate(key); ok {
			if _, want := byDate[date]; want {
				indexKeys = append(indexKeys, key)
			}
			continue
		}
		if strings.HasPrefix(key, repeatPrefix) {
			repeatKeys = append(repeatKeys, key)
		}
	}

	// index entries
	indexPairs, err := s.kv.MultiGet(ctx, indexKeys)
	if err != nil {
		return nil, err
	}
	records, err := s.records(ctx, indexPairs)
	if err != nil {
		return nil, err
	}
	added := make(map[string]bool, len(records))
	for _, pair := range indexPairs {
		e, ok := records[pair.Value]
		if !ok || added[e.ID] {
			continue
		}
		date := e.DateKey(s.loc)
		if indexed, _ := indexDate(pair.Key); indexed != date {
			slog.Warn("stale event index entry", "key", pair.Key, "date", date)
			continue
		}
		added[e.ID] = true
		byDate[date] = append(byDate[date], e)
	}

	// occurrences of repeating events
	repeatPairs, err := s.kv.MultiGet(ctx, repeatKeys)
	if err != nil {
		return nil, err
	}
	repeating, err := s.records(ctx, repeatPairs)
	if err != nil {
		return nil, err
	}
	for _, e := range repeating {
		occurrences, err := e.Occurrences(from, to, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", primaryKey(e.ID), err)
		}
		for _, occurrence := range occurrences {
			date := occurrence.DateKey(s.loc)
			if _, want := byDate[date]; want {
				byDate[date] = append(byDate[date], occurrence)
			}
		}
	}

	for date := range byDate {
		SortEvents(byDate[date])
	}
	return byDate, nil
}

// records resolves pairs whose values are event ids into events keyed by id.
// Ids whose record is gone are logged and skipped; undecodable records are
// errors.
func (s *EventStore) records(ctx context.Context, pointers []kv.Pair) (map[string]model.EventItem, error) {
	events := make(map[string]model.EventItem, len(pointers))
	if len(pointers) == 0 {
		return events, nil
	}
	keys := make([]string, 0, len(pointers))
	for _, pointer := range pointers {
		if key := primaryKey(pointer.Value); !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	pairs, err := s.kv.MultiGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		e, err := model.UnmarshalEventItem(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pair.Key, err)
		}
		events[e.ID] = e.In(s.loc)
	}
	for _, pointer := range pointers {
		if _, ok := events[pointer.Value]; !ok {
			slog.Warn("dangling event pointer", "key", pointer.Key, "id", pointer.Value)
		}
	}
	return events, nil
}

// SortEvents orders events by start, then title.
func SortEvents(events []model.EventItem) {
	slices.SortStableFunc(events, func(a, b model.EventItem) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
}
