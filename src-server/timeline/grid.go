// Package timeline turns events into positioned blocks on a vertical
// 24-hour grid, for the day and week views.
package timeline

import (
	"context"
	"time"
)

const (
	DEFAULT_PIXELS_PER_HOUR = 60
	MINUTES_PER_DAY         = 24 * 60
)

// Grid maps wall-clock times to vertical offsets.
type Grid struct {
	PixelsPerHour float64
}

func NewGrid(pixelsPerHour float64) Grid {
	if pixelsPerHour <= 0 {
		pixelsPerHour = DEFAULT_PIXELS_PER_HOUR
	}
	return Grid{PixelsPerHour: pixelsPerHour}
}

func (g Grid) perMinute() float64 {
	if g.PixelsPerHour <= 0 {
		return DEFAULT_PIXELS_PER_HOUR / 60.0
	}
	return g.PixelsPerHour / 60
}

// MinutesOf is the whole minutes elapsed since midnight of t's own day.
// Seconds are ignored, so the now line only moves on the minute.
func MinutesOf(t time.Time) float64 {
	return float64(t.Hour()*60 + t.Minute())
}

// PositionOf is the offset of t from the top of the grid.
func (g Grid) PositionOf(t time.Time) float64 {
	return MinutesOf(t) * g.perMinute()
}

// HeightOf is the distance between the wall-clock readings of start and end.
func (g Grid) HeightOf(start, end time.Time) float64 {
	return (MinutesOf(end) - MinutesOf(start)) * g.perMinute()
}

// Height is the full 24-hour height of the grid.
func (g Grid) Height() float64 {
	return MINUTES_PER_DAY * g.perMinute()
}

// NowOffset is where the current-time line is drawn.
func (g Grid) NowOffset(now time.Time) float64 {
	return g.PositionOf(now)
}

// Ticker emits the current-time offset right away and then on every tick
// until ctx is done, at which point the channel is closed.
func (g Grid) Ticker(ctx context.Context, every time.Duration, clock func() time.Time) <-chan float64 {
	if every <= 0 {
		every = time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	ch := make(chan float64, 1)
	go func() {
		defer close(ch)
		send := func() bool {
			select {
			case ch <- g.NowOffset(clock()):
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !send() {
			return
		}
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !send() {
					return
				}
			}
		}
	}()
	return ch
}

type HourLabel struct {
	Label string  `json:"label"`
	Top   float64 `json:"top"`
}

// HourLabels lists 00:00 through 23:00 with their offsets.
func (g Grid) HourLabels() []HourLabel {
	labels := make([]HourLabel, 24)
	for hour := range labels {
		labels[hour] = HourLabel{
			Label: time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:04"),
			Top:   float64(hour*60) * g.perMinute(),
		}
	}
	return labels
}
