package store_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"planner/src-server/kv"
	"planner/src-server/model"
	"planner/src-server/store"
	"planner/src-server/utils"
)

var clock = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func newEventStore(t *testing.T) (*store.EventStore, *kv.BunStore) {
	t.Helper()
	return newEventStoreIn(t, time.UTC)
}

func newEventStoreIn(t *testing.T, loc *time.Location) (*store.EventStore, *kv.BunStore) {
	t.Helper()
	_, db, err := utils.OpenDatabase(context.Background(), utils.DB_DRIVER_SQLITE, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	kvStore := kv.NewBunStore(db, nil)
	s := store.NewEventStore(kvStore, loc)
	s.SetClock(func() time.Time { return clock })
	return s, kvStore
}

func at(date string, hour, minute int) time.Time {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newEvent(title, date string, startHour, endHour int) *model.EventItem {
	return &model.EventItem{
		Title:     title,
		StartDate: at(date, startHour, 0),
		EndDate:   at(date, endHour, 0),
	}
}

func titles(events []model.EventItem) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestSaveThenLoadForDate(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)

	e := &model.EventItem{
		Title:     "  Algorithms   lecture ",
		StartDate: at("2024-03-14", 9, 0),
		EndDate:   at("2024-03-14", 10, 30),
		Location:  "Room 301",
		Memo:      "bring laptop",
		Category:  &model.EventCategory{Name: "Study", Color: "#ffb3ba", Icon: "school"},
	}
	require.NoError(t, s.Save(ctx, e))
	require.NotEmpty(t, e.ID)
	assert.Equal(t, clock, e.CreatedAt)

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Algorithms lecture", got.Title)
	assert.True(t, got.StartDate.Equal(e.StartDate))
	assert.True(t, got.EndDate.Equal(e.EndDate))
	assert.Equal(t, "Room 301", got.Location)
	assert.Equal(t, "bring laptop", got.Memo)
	assert.Equal(t, &model.EventCategory{Name: "Study", Color: "#FFB3BA", Icon: "school"}, got.Category)

	fetched, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Title, fetched.Title)

	events, err = s.LoadForDate(ctx, "2024-03-15")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadForDateIsolatesDatePrefixes(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)
	require.NoError(t, s.Save(ctx, newEvent("first", "2024-01-01", 9, 10)))
	require.NoError(t, s.Save(ctx, newEvent("tenth", "2024-01-10", 9, 10)))
	require.NoError(t, s.Save(ctx, newEvent("eleventh", "2024-01-11", 9, 10)))

	events, err := s.LoadForDate(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, titles(events))

	events, err = s.LoadForDate(ctx, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenth"}, titles(events))

	_, err = s.LoadForDate(ctx, "2024-01-1")
	require.ErrorIs(t, err, store.ErrInvalidDate)
}

func TestSameStartDifferentTitlesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)
	require.NoError(t, s.Save(ctx, newEvent("standup", "2024-03-14", 9, 10)))
	require.NoError(t, s.Save(ctx, newEvent("coffee", "2024-03-14", 9, 10)))
	require.NoError(t, s.Save(ctx, newEvent("early", "2024-03-14", 8, 9)))

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "coffee", "standup"}, titles(events))
}

func TestSaveRejectsInvalidEvents(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)

	tests := []struct {
		name  string
		event *model.EventItem
	}{
		{name: "blank title", event: newEvent("   ", "2024-03-14", 9, 10)},
		{name: "end before start", event: newEvent("backwards", "2024-03-14", 10, 9)},
		{name: "zero length", event: newEvent("empty", "2024-03-14", 9, 9)},
		{name: "bad color", event: &model.EventItem{
			Title:     "colored",
			StartDate: at("2024-03-14", 9, 0),
			EndDate:   at("2024-03-14", 10, 0),
			Category:  &model.EventCategory{Color: "red"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, s.Save(ctx, tt.event), model.ErrInvalidEvent)
		})
	}

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSaveRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)
	e := newEvent("once", "2024-03-14", 9, 10)
	require.NoError(t, s.Save(ctx, e))

	again := newEvent("twice", "2024-03-14", 11, 12)
	again.ID = e.ID
	require.ErrorIs(t, s.Save(ctx, again), store.ErrEventExists)
}

func TestUpdateMovesIndex(t *testing.T) {
	ctx := context.Background()
	s, kvStore := newEventStore(t)
	e := newEvent("dentist", "2024-03-14", 9, 10)
	require.NoError(t, s.Save(ctx, e))

	moved := *e
	moved.Title = "dentist (moved)"
	moved.StartDate = at("2024-03-16", 14, 0)
	moved.EndDate = at("2024-03-16", 15, 0)
	require.NoError(t, s.Update(ctx, &moved))
	assert.Equal(t, e.CreatedAt, moved.CreatedAt)

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = s.LoadForDate(ctx, "2024-03-16")
	require.NoError(t, err)
	assert.Equal(t, []string{"dentist (moved)"}, titles(events))

	keys, err := kvStore.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2, "one record and one index entry")

	missing := newEvent("ghost", "2024-03-14", 9, 10)
	missing.ID = "does-not-exist"
	require.ErrorIs(t, s.Update(ctx, missing), store.ErrEventNotFound)
}

func TestUpdateMemo(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)
	e := newEvent("review", "2024-03-14", 9, 10)
	require.NoError(t, s.Save(ctx, e))

	updated, err := s.UpdateMemo(ctx, e.ID, "  chapter 3 and 4 ")
	require.NoError(t, err)
	assert.Equal(t, "chapter 3 and 4", updated.Memo)

	fetched, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "chapter 3 and 4", fetched.Memo)

	_, err = s.UpdateMemo(ctx, "nope", "x")
	require.ErrorIs(t, err, store.ErrEventNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, kvStore := newEventStore(t)
	e := newEvent("gym", "2024-03-14", 18, 19)
	e.RepeatOption = &model.RepeatOption{Type: model.REPEAT_DAILY}
	require.NoError(t, s.Save(ctx, e))

	require.NoError(t, s.Delete(ctx, e.ID))
	_, err := s.Get(ctx, e.ID)
	require.ErrorIs(t, err, store.ErrEventNotFound)
	require.ErrorIs(t, s.Delete(ctx, e.ID), store.ErrEventNotFound)

	keys, err := kvStore.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDeleteAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	s, kvStore := newEventStore(t)
	require.NoError(t, kvStore.Set(ctx, "settings:theme", "dark"))
	for i := range 3 {
		e := newEvent(fmt.Sprintf("event %d", i), "2024-03-14", 9+i, 10+i)
		e.RepeatOption = &model.RepeatOption{Type: model.REPEAT_WEEKLY}
		require.NoError(t, s.Save(ctx, e))
	}

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, err := kvStore.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"settings:theme"}, keys)
}

func TestCorruptRecordIsAnError(t *testing.T) {
	ctx := context.Background()
	s, kvStore := newEventStore(t)
	require.NoError(t, kvStore.Set(ctx, "event:bad", "{not json"))
	require.NoError(t, kvStore.Set(ctx, "event-2024-03-14-0-bad", "bad"))

	_, err := s.LoadForDate(ctx, "2024-03-14")
	require.ErrorIs(t, err, model.ErrCorruptRecord)

	_, err = s.Get(ctx, "bad")
	require.ErrorIs(t, err, model.ErrCorruptRecord)
}

func TestDanglingIndexIsSkipped(t *testing.T) {
	ctx := context.Background()
	s, kvStore := newEventStore(t)
	require.NoError(t, s.Save(ctx, newEvent("real", "2024-03-14", 9, 10)))
	require.NoError(t, kvStore.Set(ctx, "event-2024-03-14-0-gone", "gone"))

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, titles(events))
}

func TestRepeatingEventOccurrences(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)

	// 2024-03-04 is a Monday
	weekly := newEvent("piano", "2024-03-04", 17, 18)
	weekly.RepeatOption = &model.RepeatOption{Type: "매주", Days: []string{"Mon", "목"}}
	require.NoError(t, s.Save(ctx, weekly))
	assert.Equal(t, []string{"monday", "thursday"}, weekly.RepeatOption.Days)

	tests := []struct {
		date string
		want []string
	}{
		{date: "2024-02-26", want: []string{}},
		{date: "2024-03-04", want: []string{"piano"}},
		{date: "2024-03-05", want: []string{}},
		{date: "2024-03-07", want: []string{"piano"}},
		{date: "2024-03-11", want: []string{"piano"}},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			events, err := s.LoadForDate(ctx, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(events))
			for _, e := range events {
				assert.Equal(t, tt.date, e.DateKey(time.UTC))
				assert.Equal(t, time.Hour, e.Duration())
				assert.Equal(t, weekly.ID, e.ID)
			}
		})
	}
}

func TestLoadRange(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)
	daily := newEvent("journal", "2024-03-04", 22, 23)
	daily.RepeatOption = &model.RepeatOption{Type: model.REPEAT_DAILY}
	require.NoError(t, s.Save(ctx, daily))
	require.NoError(t, s.Save(ctx, newEvent("exam", "2024-03-06", 9, 11)))

	byDate, err := s.LoadRange(ctx, "2024-03-03", "2024-03-09")
	require.NoError(t, err)
	require.Len(t, byDate, 7)
	assert.Empty(t, byDate["2024-03-03"])
	assert.Equal(t, []string{"journal"}, titles(byDate["2024-03-04"]))
	assert.Equal(t, []string{"exam", "journal"}, titles(byDate["2024-03-06"]))
	assert.Equal(t, []string{"journal"}, titles(byDate["2024-03-09"]))

	_, err = s.LoadRange(ctx, "2024-03-09", "2024-03-03")
	require.ErrorIs(t, err, store.ErrInvalidDate)
	_, err = s.LoadRange(ctx, "2024-01-01", "2024-12-31")
	require.ErrorIs(t, err, store.ErrRangeTooLong)
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s, _ := newEventStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Save(ctx, newEvent(fmt.Sprintf("task %02d", i), "2024-03-14", 9, 10))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestStorageFailureIsSurfaced(t *testing.T) {
	ctx := context.Background()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	s := store.NewEventStore(kv.NewBunStore(bun.NewDB(rawDB, sqlitedialect.New()), nil), time.UTC)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("database is locked"))
	events, err := s.LoadForDate(ctx, "2024-03-14")
	require.Error(t, err)
	assert.Nil(t, events)

	mock.ExpectExec("INSERT").WillReturnError(errors.New("database is locked"))
	require.Error(t, s.Save(ctx, newEvent("lost", "2024-03-14", 9, 10)))
}

func TestDateKeysFollowStoreLocation(t *testing.T) {
	ctx := context.Background()
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	s, kvStore := newEventStoreIn(t, seoul)

	// 00:30 in Seoul is still the previous day in UTC
	e := &model.EventItem{
		Title:     "night owl",
		StartDate: time.Date(2030, time.January, 6, 15, 30, 0, 0, time.UTC),
		EndDate:   time.Date(2030, time.January, 6, 16, 30, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, e))

	keys, err := kvStore.GetAllKeys(ctx)
	require.NoError(t, err)
	var indexed []string
	for _, k := range keys {
		if strings.HasPrefix(k, "event-") {
			indexed = append(indexed, k)
		}
	}
	require.Len(t, indexed, 1)
	assert.True(t, strings.HasPrefix(indexed[0], "event-2030-01-07-"), indexed[0])

	events, err := s.LoadForDate(ctx, "2030-01-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"night owl"}, titles(events))

	events, err = s.LoadForDate(ctx, "2030-01-06")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRepeatingEventOccurrencesInLocation(t *testing.T) {
	ctx := context.Background()
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	s, _ := newEventStoreIn(t, seoul)

	// monday 08:00 in Seoul is sunday 23:00 UTC
	weekly := &model.EventItem{
		Title:        "standup",
		StartDate:    time.Date(2030, time.January, 7, 8, 0, 0, 0, seoul),
		EndDate:      time.Date(2030, time.January, 7, 9, 0, 0, 0, seoul),
		RepeatOption: &model.RepeatOption{Type: model.REPEAT_WEEKLY},
	}
	require.NoError(t, s.Save(ctx, weekly))

	byDate, err := s.LoadRange(ctx, "2030-01-13", "2030-01-15")
	require.NoError(t, err)
	assert.Empty(t, byDate["2030-01-13"])
	assert.Empty(t, byDate["2030-01-15"])
	require.Equal(t, []string{"standup"}, titles(byDate["2030-01-14"]))
	got := byDate["2030-01-14"][0].StartDate.In(seoul)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, 8, got.Hour())
}
