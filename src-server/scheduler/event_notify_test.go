package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/src-server/kv"
	"planner/src-server/model"
	"planner/src-server/store"
	"planner/src-server/utils"
)

type fakeNotifier struct {
	batches [][]*discordgo.MessageEmbed
	err     error
}

func (f *fakeNotifier) Notify(_ context.Context, embeds []*discordgo.MessageEmbed) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, embeds)
	return nil
}

var noon = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *store.EventStore {
	t.Helper()
	_, db, err := utils.OpenDatabase(context.Background(), utils.DB_DRIVER_SQLITE, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewEventStore(kv.NewBunStore(db, nil), time.UTC)
}

func save(t *testing.T, s *store.EventStore, title string, start time.Time) {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), &model.EventItem{
		Title:     title,
		StartDate: start,
		EndDate:   start.Add(time.Hour),
	}))
}

func TestReminderSendsOnlyUpcomingOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	save(t, s, "started", noon.Add(-time.Minute))
	save(t, s, "soon", noon.Add(10*time.Minute))
	save(t, s, "later", noon.Add(time.Hour))

	n := &fakeNotifier{}
	r := NewReminder(s, n, 15*time.Minute)
	r.SetClock(func() time.Time { return noon })

	sent, err := r.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, n.batches, 1)
	assert.Equal(t, "soon", n.batches[0][0].Title)

	sent, err = r.Check(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, n.batches, 1)
}

func TestReminderRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	save(t, s, "soon", noon.Add(5*time.Minute))

	n := &fakeNotifier{err: errors.New("discord down")}
	r := NewReminder(s, n, 15*time.Minute)
	r.SetClock(func() time.Time { return noon })

	_, err := r.Check(ctx)
	require.Error(t, err)

	n.err = nil
	sent, err := r.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderAcrossMidnight(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	late := time.Date(2024, time.May, 10, 23, 55, 0, 0, time.UTC)
	save(t, s, "midnight snack", late.Add(10*time.Minute))

	n := &fakeNotifier{}
	r := NewReminder(s, n, 15*time.Minute)
	r.SetClock(func() time.Time { return late })

	sent, err := r.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestNewWebhookNotifier(t *testing.T) {
	n, err := NewWebhookNotifier("https://discord.com/api/webhooks/123/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "123", n.id)
	assert.Equal(t, "abc", n.token)

	_, err = NewWebhookNotifier("https://discord.com/channels/123", nil)
	assert.Error(t, err)
}

func TestEmbedCarriesCategory(t *testing.T) {
	e := model.EventItem{
		ID:        "e1",
		Title:     "Gym",
		StartDate: noon,
		EndDate:   noon.Add(time.Hour),
		Location:  "Campus gym",
		Category:  &model.EventCategory{Name: "Health", Color: "#FFB3BA"},
	}
	embed := e.ToDiscordEmbed()
	assert.Equal(t, "Gym", embed.Title)
	assert.Equal(t, 0xFFB3BA, embed.Color)
	assert.Equal(t, "e1", embed.Footer.Text)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "Campus gym", embed.Fields[2].Value)
	assert.Equal(t, "Health", embed.Fields[3].Value)
}
