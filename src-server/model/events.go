package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventCategory is the user-chosen label shown on an event block.
type EventCategory struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// EventItem is a single calendar entry as stored on the device.
//
// ID is assigned by the store on the first save and never changes afterwards;
// it is the only identity used for update and delete.
type EventItem struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	StartDate    time.Time      `json:"startDate"`
	EndDate      time.Time      `json:"endDate"`
	Location     string         `json:"location,omitempty"`
	Memo         string         `json:"memo,omitempty"`
	Category     *EventCategory `json:"category,omitempty"`
	RepeatOption *RepeatOption  `json:"repeatOption,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Duration is the length of the event.
func (e EventItem) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// DateKey returns the calendar date (YYYY-MM-DD) of the start in loc.
func (e EventItem) DateKey(loc *time.Location) string {
	return e.StartDate.In(loc).Format(time.DateOnly)
}

// Color returns the category color, or fallback when the event has none.
func (e EventItem) Color(fallback string) string {
	if e.Category == nil || e.Category.Color == "" {
		return fallback
	}
	return e.Category.Color
}

// Marshal serializes the event for the key-value store. Dates become RFC 3339.
func (e EventItem) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("EventItem.Marshal: %w", err)
	}
	return string(b), nil
}

// UnmarshalEventItem parses a stored record. Empty input is a corrupt record,
// never an empty event.
func UnmarshalEventItem(raw string) (*EventItem, error) {
	if raw == "" {
		return nil, fmt.Errorf("UnmarshalEventItem: %w: empty value", ErrCorruptRecord)
	}
	e := new(EventItem)
	if err := json.Unmarshal([]byte(raw), e); err != nil {
		return nil, fmt.Errorf("UnmarshalEventItem: %w: %w", ErrCorruptRecord, err)
	}
	if e.ID == "" || e.StartDate.IsZero() {
		return nil, fmt.Errorf("UnmarshalEventItem: %w: missing id or start date", ErrCorruptRecord)
	}
	return e, nil
}

// In returns a copy with both dates converted to loc.
func (e EventItem) In(loc *time.Location) EventItem {
	e.StartDate = e.StartDate.In(loc)
	e.EndDate = e.EndDate.In(loc)
	return e
}
