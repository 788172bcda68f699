package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
)

var ErrUnresolvedDate = errors.New("can't resolve date")

// ResolveDate turns a YYYY-MM-DD string or a phrase like "tomorrow" or
// "next friday" into a YYYY-MM-DD date in loc, relative to now.
func ResolveDate(w *when.Parser, text string, now time.Time, loc *time.Location) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return now.In(loc).Format(time.DateOnly), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, text, loc); err == nil {
		return t.Format(time.DateOnly), nil
	}
	result, err := w.Parse(text, now.In(loc))
	if err != nil {
		return "", fmt.Errorf("ResolveDate: %w: %w", ErrUnresolvedDate, err)
	}
	if result == nil {
		return "", fmt.Errorf("ResolveDate: %w: %q", ErrUnresolvedDate, text)
	}
	return result.Time.In(loc).Format(time.DateOnly), nil
}
