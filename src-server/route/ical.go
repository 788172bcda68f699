package route

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"

	"planner/src-server/model"
	"planner/src-server/store"
	"planner/src-server/utils"
)

const ICAL_PRODUCT_ID = "-//planner//calendar export//EN"

// EventSource is what the feed reads from.
type EventSource interface {
	LoadRange(ctx context.Context, from, to string) (map[string][]model.EventItem, error)
	Get(ctx context.Context, id string) (*model.EventItem, error)
	Location() *time.Location
}

var _ EventSource = (*store.EventStore)(nil)

// BuildCalendar renders the events in [from, to] as an iCalendar feed.
// Repeating events are written once, as their stored record with an RRULE,
// instead of once per occurrence.
func BuildCalendar(ctx context.Context, events EventSource, from, to string) (*ics.Calendar, error) {
	byDate, err := events.LoadRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("BuildCalendar: %w", err)
	}
	days, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return nil, fmt.Errorf("BuildCalendar: %w", err)
	}

	zone := feedZone(events.Location())
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ICAL_PRODUCT_ID)
	cal.SetXWRTimezone(zone.String())

	seen := make(map[string]bool)
	for day := days; day.Format(time.DateOnly) <= to; day = day.AddDate(0, 0, 1) {
		for _, e := range byDate[day.Format(time.DateOnly)] {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if e.RepeatOption != nil {
				base, err := events.Get(ctx, e.ID)
				if err != nil {
					return nil, fmt.Errorf("BuildCalendar: %w", err)
				}
				e = *base
			}
			addEvent(cal, e, zone)
		}
	}
	return cal, nil
}

const icalWallClock = "20060102T150405"

// feedZone is the zone DTSTART/DTEND are written in. "Local" has no IANA
// name a calendar client could resolve, so it falls back to UTC.
func feedZone(loc *time.Location) *time.Location {
	if loc == nil || loc.String() == "Local" {
		return time.UTC
	}
	return loc
}

// setTime writes t as wall-clock time with a TZID, so a client expands an
// RRULE on the same calendar days the store does.
func setTime(vevent *ics.VEvent, property ics.ComponentProperty, t time.Time, zone *time.Location) {
	if zone == time.UTC {
		vevent.SetProperty(property, t.UTC().Format(icalWallClock+"Z"))
		return
	}
	vevent.SetProperty(property, t.In(zone).Format(icalWallClock), ics.WithTZID(zone.String()))
}

func addEvent(cal *ics.Calendar, e model.EventItem, zone *time.Location) {
	vevent := cal.AddEvent(e.ID + "@planner")
	vevent.SetCreatedTime(e.CreatedAt)
	vevent.SetDtStampTime(e.UpdatedAt)
	vevent.SetModifiedAt(e.UpdatedAt)
	setTime(vevent, ics.ComponentPropertyDtStart, e.StartDate, zone)
	setTime(vevent, ics.ComponentPropertyDtEnd, e.EndDate, zone)
	vevent.SetSummary(e.Title)
	if e.Location != "" {
		vevent.SetLocation(e.Location)
	}
	if e.Memo != "" {
		vevent.SetDescription(e.Memo)
	}
	if e.Category != nil {
		if e.Category.Name != "" {
			vevent.SetProperty(ics.ComponentPropertyCategories, e.Category.Name)
		}
		if e.Category.Color != "" {
			vevent.SetProperty(ics.ComponentPropertyColor, e.Category.Color)
		}
	}
	if e.RepeatOption != nil {
		// BYDAY/BYMONTHDAY come from the same wall clock DTSTART carries
		vevent.AddRrule(e.RepeatOption.RRule(e.StartDate.In(zone)))
	}
}

func Ical(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /calendar.ics", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		loc := as.Config.GetLocation()
		today := time.Now().In(loc)
		from := r.URL.Query().Get("from")
		if from == "" {
			from = today.Format(time.DateOnly)
		}
		to := r.URL.Query().Get("to")
		if to == "" {
			to = today.AddDate(0, 0, store.MAX_RANGE_DAYS-1).Format(time.DateOnly)
		}

		cal, err := BuildCalendar(r.Context(), as.Events, from, to)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, cal.Serialize()); err != nil {
			slog.Warn("can't write to response", "where", "route/ical.go", "err", err)
		}
	}))
}
