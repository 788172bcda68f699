package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"

	"planner/src-server/model"
	"planner/src-server/utils"
)

// discord refuses more embeds than this per message
const MAX_EMBEDS_PER_MESSAGE = 10

type Notifier interface {
	Notify(ctx context.Context, embeds []*discordgo.MessageEmbed) error
}

type EventSource interface {
	LoadRange(ctx context.Context, from, to string) (map[string][]model.EventItem, error)
	Location() *time.Location
}

// WebhookNotifier posts to a Discord channel webhook, no bot session needed.
type WebhookNotifier struct {
	session *discordgo.Session
	id      string
	token   string
	metric  *utils.Metric
}

// NewWebhookNotifier takes a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>. metric may be nil.
func NewWebhookNotifier(webhookURL string, metric *utils.Metric) (*WebhookNotifier, error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("NewWebhookNotifier: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[len(parts)-3] != "webhooks" || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return nil, fmt.Errorf("NewWebhookNotifier: %q is not a webhook url", u.Redacted())
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("NewWebhookNotifier: %w", err)
	}
	return &WebhookNotifier{
		session: session,
		id:      parts[len(parts)-2],
		token:   parts[len(parts)-1],
		metric:  metric,
	}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, embeds []*discordgo.MessageEmbed) error {
	for start := 0; start < len(embeds); start += MAX_EMBEDS_PER_MESSAGE {
		end := min(start+MAX_EMBEDS_PER_MESSAGE, len(embeds))
		startTimer := time.Now()
		if _, err := n.session.WebhookExecute(n.id, n.token, false, &discordgo.WebhookParams{
			Embeds: embeds[start:end],
		}, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("(*WebhookNotifier).Notify: %w", err)
		}
		if n.metric != nil {
			n.metric.ObserveWebhook(time.Since(startTimer))
		}
	}
	return nil
}

// Reminder announces events shortly before they start. What was announced is
// only remembered by this process.
type Reminder struct {
	events   EventSource
	notifier Notifier
	lead     time.Duration
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewReminder(events EventSource, notifier Notifier, lead time.Duration) *Reminder {
	return &Reminder{
		events:   events,
		notifier: notifier,
		lead:     lead,
		now:      time.Now,
		sent:     make(map[string]time.Time),
	}
}

func (r *Reminder) SetClock(now func() time.Time) {
	r.now = now
}

func sentKey(e model.EventItem) string {
	return fmt.Sprintf("%s@%d", e.ID, e.StartDate.Unix())
}

// Check sends one reminder per event starting within the lead time and
// returns how many were sent.
func (r *Reminder) Check(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc := r.events.Location()
	now := r.now().In(loc)
	until := now.Add(r.lead)
	byDate, err := r.events.LoadRange(ctx, now.Format(time.DateOnly), until.Format(time.DateOnly))
	if err != nil {
		return 0, fmt.Errorf("(*Reminder).Check: %w", err)
	}

	due := make([]model.EventItem, 0)
	for _, events := range byDate {
		for _, e := range events {
			if !e.StartDate.After(now) || e.StartDate.After(until) {
				continue
			}
			if _, ok := r.sent[sentKey(e)]; ok {
				continue
			}
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	embeds := make([]*discordgo.MessageEmbed, len(due))
	for i, e := range due {
		embeds[i] = e.ToDiscordEmbed()
	}
	if err := r.notifier.Notify(ctx, embeds); err != nil {
		return 0, fmt.Errorf("(*Reminder).Check: %w", err)
	}
	for _, e := range due {
		r.sent[sentKey(e)] = e.StartDate
	}

	// forget what already started
	for key, start := range r.sent {
		if start.Before(now) {
			delete(r.sent, key)
		}
	}
	return len(due), nil
}

// EventNotify runs the reminder on REMINDER_CRON until graceful shutdown.
// It does nothing when no webhook is configured.
func EventNotify(as *utils.AppState) error {
	webhookURL := as.Config.GetDiscordWebhookURL()
	if webhookURL == "" {
		return nil
	}
	notifier, err := NewWebhookNotifier(webhookURL, as.MetricChans)
	if err != nil {
		return fmt.Errorf("EventNotify: %w", err)
	}
	reminder := NewReminder(as.Events, notifier, as.Config.GetReminderLead())

	c := cron.New()
	if _, err := c.AddFunc(as.Config.GetReminderCron(), func() {
		sent, err := reminder.Check(context.Background())
		if err != nil {
			slog.Error("can't send reminders", "error", err)
			return
		}
		if sent > 0 {
			slog.Info("reminders sent", "count", sent)
		}
	}); err != nil {
		return fmt.Errorf("EventNotify: %w", err)
	}
	c.Start()

	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		<-*gracefulShutdownCh
		<-c.Stop().Done()
		slog.Debug("reminder scheduler stopped")
	}()
	return nil
}
