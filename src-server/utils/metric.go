package utils

import "time"

// Metric carries latencies (microseconds) from the hot paths to the
// prometheus collectors in package metric. Sends never block: a sample is
// dropped when no collector is listening.
type Metric struct {
	DatabaseRead       chan float64
	DatabaseWrite      chan float64
	DiscordSendWebhook chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:       make(chan float64, 1),
		DatabaseWrite:      make(chan float64, 1),
		DiscordSendWebhook: make(chan float64, 1),
	}
}

func offer(ch chan float64, d time.Duration) {
	select {
	case ch <- float64(d.Microseconds()):
	default:
	}
}

func (m *Metric) ObserveRead(d time.Duration) {
	offer(m.DatabaseRead, d)
}

func (m *Metric) ObserveWrite(d time.Duration) {
	offer(m.DatabaseWrite, d)
}

func (m *Metric) ObserveWebhook(d time.Duration) {
	offer(m.DiscordSendWebhook, d)
}
