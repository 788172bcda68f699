package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidEvent matches every *ValidationError.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrCorruptRecord is returned when a stored value can't be decoded.
	ErrCorruptRecord = errors.New("corrupt event record")
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidationError reports which field of an event broke an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CleanupText trims surrounding space, collapses inner runs of whitespace and
// normalizes to NFC so composed and decomposed Hangul compare equal.
func CleanupText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Normalize cleans free-text fields and canonicalizes the repeat option.
// It does not validate.
func (e *EventItem) Normalize() {
	e.Title = CleanupText(e.Title)
	e.Location = CleanupText(e.Location)
	e.Memo = strings.TrimSpace(norm.NFC.String(e.Memo))
	if e.Category != nil {
		e.Category.Name = CleanupText(e.Category.Name)
		e.Category.Color = strings.ToUpper(strings.TrimSpace(e.Category.Color))
		e.Category.Icon = strings.TrimSpace(e.Category.Icon)
		if *e.Category == (EventCategory{}) {
			e.Category = nil
		}
	}
	if e.RepeatOption != nil {
		e.RepeatOption.normalize()
	}
}

// Validate checks the invariants every stored event must hold.
func (e EventItem) Validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return invalid("title", "is required")
	case e.StartDate.IsZero():
		return invalid("startDate", "is required")
	case e.EndDate.IsZero():
		return invalid("endDate", "is required")
	case !e.EndDate.After(e.StartDate):
		return invalid("endDate", "must be after startDate")
	}

	if c := e.Category; c != nil {
		if c.Color != "" && !hexColorRegexp.MatchString(c.Color) {
			return invalid("category.color", "must be a #RRGGBB color")
		}
		if c.Icon != "" && !DefaultCatalog().HasIcon(c.Icon) {
			return invalid("category.icon", fmt.Sprintf("%q is not in the icon catalog", c.Icon))
		}
	}

	if e.RepeatOption != nil {
		if err := e.RepeatOption.validate(); err != nil {
			return err
		}
	}
	return nil
}
