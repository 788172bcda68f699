package store

import (
	"fmt"
	"strings"
	"time"
)

const (
	primaryPrefix = "event:"
	indexPrefix   = "event-"
	repeatPrefix  = "repeat:"
)

func primaryKey(id string) string {
	return primaryPrefix + id
}

func repeatKey(id string) string {
	return repeatPrefix + id
}

// indexKey is event-<YYYY-MM-DD>-<startMillis>-<id>. The millis keep keys of
// one day ordered by start, the id keeps same-start events apart.
func indexKey(date string, start time.Time, id string) string {
	return fmt.Sprintf("%s%s-%d-%s", indexPrefix, date, start.UnixMilli(), id)
}

// indexDate pulls the date out of an index key. The date must be followed by
// a dash, so 2024-01-1 never matches keys of 2024-01-10.
func indexDate(key string) (string, bool) {
	if !strings.HasPrefix(key, indexPrefix) {
		return "", false
	}
	rest := key[len(indexPrefix):]
	if len(rest) < len(time.DateOnly)+1 || rest[len(time.DateOnly)] != '-' {
		return "", false
	}
	return rest[:len(time.DateOnly)], true
}

func isEventKey(key string) bool {
	return strings.HasPrefix(key, primaryPrefix) ||
		strings.HasPrefix(key, indexPrefix) ||
		strings.HasPrefix(key, repeatPrefix)
}
