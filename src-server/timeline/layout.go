package timeline

import (
	"time"

	"planner/src-server/model"
)

const (
	DEFAULT_BLOCK_COLOR  = "#E0E0E0"
	DEFAULT_MARKER_COLOR = "#000000"
)

type Column struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// Block is one event positioned in a column.
type Block struct {
	Event  model.EventItem `json:"event"`
	Column int             `json:"column"`
	Date   string          `json:"date"`
	Top    float64         `json:"top"`
	Height float64         `json:"height"`
	Color  string          `json:"color"`
	Label  string          `json:"label"`
}

type Timeline struct {
	Columns []Column    `json:"columns"`
	Blocks  []Block     `json:"blocks"`
	Hours   []HourLabel `json:"hours"`
	Height  float64     `json:"height"`
}

// BucketFunc picks the column of an event starting at start. ok=false keeps
// the event off the timeline.
type BucketFunc func(start time.Time, columns []time.Time) (column int, ok bool)

// ByCalendarDate places an event in the column showing its start date,
// counting whole calendar days from the first column.
func ByCalendarDate(start time.Time, columns []time.Time) (int, bool) {
	if len(columns) == 0 {
		return 0, false
	}
	first := columns[0]
	start = start.In(first.Location())
	firstDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(startDay.Sub(firstDay).Hours() / 24)
	if offset < 0 || offset >= len(columns) {
		return 0, false
	}
	return offset, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Layout positions events on the given day columns. Events running past
// midnight are cut at 24:00 and events without a positive height are left
// out. A nil bucket means ByCalendarDate.
func (g Grid) Layout(events []model.EventItem, columns []time.Time, bucket BucketFunc) Timeline {
	if bucket == nil {
		bucket = ByCalendarDate
	}
	tl := Timeline{
		Columns: make([]Column, len(columns)),
		Blocks:  make([]Block, 0, len(events)),
		Hours:   g.HourLabels(),
		Height:  g.Height(),
	}
	loc := time.Local
	if len(columns) > 0 {
		loc = columns[0].Location()
	}
	for i, column := range columns {
		tl.Columns[i] = Column{
			Date:    column.Format(time.DateOnly),
			Weekday: column.Weekday().String(),
		}
	}

	for _, e := range events {
		column, ok := bucket(e.StartDate, columns)
		if !ok {
			continue
		}
		start := e.StartDate.In(loc)
		end := e.EndDate.In(loc)

		endMinutes := MinutesOf(end)
		if !sameDay(start, end) && end.After(start) {
			endMinutes = MINUTES_PER_DAY
		}
		height := (endMinutes - MinutesOf(start)) * g.perMinute()
		if height <= 0 {
			continue
		}

		tl.Blocks = append(tl.Blocks, Block{
			Event:  e,
			Column: column,
			Date:   tl.Columns[column].Date,
			Top:    g.PositionOf(start),
			Height: height,
			Color:  e.Color(DEFAULT_BLOCK_COLOR),
			Label:  start.Format("15:04") + " ~ " + end.Format("15:04"),
		})
	}
	return tl
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Day is the single column of the day view.
func Day(date time.Time) []time.Time {
	return []time.Time{midnight(date)}
}

// Week is the seven columns of the week containing anchor, starting on
// weekStart.
func Week(anchor time.Time, weekStart time.Weekday) []time.Time {
	first := midnight(anchor)
	back := (int(first.Weekday()) - int(weekStart) + 7) % 7
	first = first.AddDate(0, 0, -back)
	columns := make([]time.Time, 7)
	for i := range columns {
		columns[i] = first.AddDate(0, 0, i)
	}
	return columns
}

// MonthMarkers lists the category colors of each date's events, for the
// dots under the month view's day numbers.
func MonthMarkers(byDate map[string][]model.EventItem) map[string][]string {
	markers := make(map[string][]string, len(byDate))
	for date, events := range byDate {
		if len(events) == 0 {
			continue
		}
		colors := make([]string, len(events))
		for i, e := range events {
			colors[i] = e.Color(DEFAULT_MARKER_COLOR)
		}
		markers[date] = colors
	}
	return markers
}

// Month is the first and last day of the month containing t.
func Month(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first, first.AddDate(0, 1, -1)
}
