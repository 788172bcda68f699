package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xyedo/rrule"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type RepeatType string

const (
	REPEAT_DAILY   = RepeatType("daily")
	REPEAT_WEEKLY  = RepeatType("weekly")
	REPEAT_MONTHLY = RepeatType("monthly")
)

// labels the add-event form sends
var repeatTypeAliases = map[string]RepeatType{
	"daily":   REPEAT_DAILY,
	"weekly":  REPEAT_WEEKLY,
	"monthly": REPEAT_MONTHLY,
	"매일":      REPEAT_DAILY,
	"매주":      REPEAT_WEEKLY,
	"매월":      REPEAT_MONTHLY,
}

var weekdayAliases = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "일": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "월": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "화": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "수": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "목": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "금": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "토": time.Saturday,
}

var rruleWeekdays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RepeatOption describes how an event recurs. Days is only meaningful for
// weekly rules and Dates (day of month) only for monthly rules.
type RepeatOption struct {
	Type  RepeatType `json:"type"`
	Days  []string   `json:"days,omitempty"`
	Dates []int      `json:"dates,omitempty"`
}

// ParseWeekday accepts English names (full or three letters, any case) and
// the single-character Korean names.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayAliases[cases.Lower(language.Und).String(strings.TrimSpace(s))]
	return d, ok
}

func (r *RepeatOption) normalize() {
	key := cases.Lower(language.Und).String(strings.TrimSpace(string(r.Type)))
	if t, ok := repeatTypeAliases[key]; ok {
		r.Type = t
	}
	days := make([]string, 0, len(r.Days))
	for _, day := range r.Days {
		if d, ok := ParseWeekday(day); ok {
			day = strings.ToLower(d.String())
		}
		if !slices.Contains(days, day) {
			days = append(days, day)
		}
	}
	r.Days = days
	slices.Sort(r.Dates)
	r.Dates = slices.Compact(r.Dates)
	if len(r.Days) == 0 {
		r.Days = nil
	}
	if len(r.Dates) == 0 {
		r.Dates = nil
	}
}

func (r *RepeatOption) validate() error {
	switch r.Type {
	case REPEAT_DAILY, REPEAT_WEEKLY, REPEAT_MONTHLY:
	default:
		return invalid("repeatOption.type", fmt.Sprintf("%q is not daily, weekly or monthly", r.Type))
	}
	if len(r.Days) > 0 && r.Type != REPEAT_WEEKLY {
		return invalid("repeatOption.days", "only applies to weekly rules")
	}
	if len(r.Dates) > 0 && r.Type != REPEAT_MONTHLY {
		return invalid("repeatOption.dates", "only applies to monthly rules")
	}
	for _, day := range r.Days {
		if _, ok := ParseWeekday(day); !ok {
			return invalid("repeatOption.days", fmt.Sprintf("%q is not a weekday", day))
		}
	}
	for _, date := range r.Dates {
		if date < 1 || date > 31 {
			return invalid("repeatOption.dates", fmt.Sprintf("%d is not a day of month", date))
		}
	}
	return nil
}

// RRule renders the option as an RFC 5545 RRULE value anchored on start.
// Weekly rules without days repeat on start's weekday, monthly rules without
// dates on start's day of month.
func (r RepeatOption) RRule(start time.Time) string {
	switch r.Type {
	case REPEAT_WEEKLY:
		byDay := make([]string, 0, len(r.Days))
		for _, day := range r.Days {
			if d, ok := ParseWeekday(day); ok {
				byDay = append(byDay, rruleWeekdays[d])
			}
		}
		if len(byDay) == 0 {
			byDay = append(byDay, rruleWeekdays[start.Weekday()])
		}
		return "FREQ=WEEKLY;BYDAY=" + strings.Join(byDay, ",")
	case REPEAT_MONTHLY:
		dates := r.Dates
		if len(dates) == 0 {
			dates = []int{start.Day()}
		}
		byMonthDay := make([]string, len(dates))
		for i, date := range dates {
			byMonthDay[i] = fmt.Sprintf("%d", date)
		}
		return "FREQ=MONTHLY;BYMONTHDAY=" + strings.Join(byMonthDay, ",")
	default:
		return "FREQ=DAILY"
	}
}

const rruleWallClock = "20060102T150405Z"

// wall reinterprets t's clock reading in loc as a UTC instant, so recurrence
// math follows the wall clock across DST changes.
func wall(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func unwall(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// Occurrences returns copies of a repeating event whose start falls on a
// calendar day in [from, to] (dates in loc). The event's own start is skipped
// since it is stored as a regular record.
func (e EventItem) Occurrences(from, to time.Time, loc *time.Location) ([]EventItem, error) {
	if e.RepeatOption == nil {
		return nil, nil
	}
	rangeStart := wall(from, loc)
	rangeStart = time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, time.UTC)
	rangeEnd := wall(to, loc)
	rangeEnd = time.Date(rangeEnd.Year(), rangeEnd.Month(), rangeEnd.Day(), 23, 59, 59, 0, time.UTC)

	dtStart := wall(e.StartDate, loc)
	if dtStart.After(rangeEnd) {
		return nil, nil
	}

	set, err := rrule.StrToRRuleSet(fmt.Sprintf(
		"DTSTART:%s\nRRULE:%s;UNTIL=%s",
		dtStart.Format(rruleWallClock),
		e.RepeatOption.RRule(dtStart),
		rangeEnd.Format(rruleWallClock),
	))
	if err != nil {
		return nil, fmt.Errorf("EventItem.Occurrences: invalid rrule: %w", err)
	}

	duration := e.Duration()
	occurrences := make([]EventItem, 0)
	for _, date := range set.All() {
		if date.Before(rangeStart) || date.After(rangeEnd) || date.Equal(dtStart) {
			continue
		}
		occurrence := e
		occurrence.StartDate = unwall(date, loc)
		occurrence.EndDate = occurrence.StartDate.Add(duration)
		occurrences = append(occurrences, occurrence)
	}
	return occurrences, nil
}
