package metric

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"planner/src-server/utils"
)

// register returns the gauge that ends up in the default registry, which is
// the existing one when Init runs more than once in a process.
func register(name, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	if err := prometheus.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
		slog.Error("can't register metric", "name", name, "error", err)
		return gauge
	}
	slog.Debug("metric registered", "name", name)
	gauge.Set(0)
	return gauge
}

func unregister(name string, gauge prometheus.Gauge) {
	if prometheus.Unregister(gauge) {
		slog.Debug("metric unregistered", "name", name)
		return
	}
	slog.Warn("metric not registered", "name", name)
}

// polled samples probe() every interval.
func polled(as *utils.AppState, name, help string, interval time.Duration, probe func() (time.Duration, error)) {
	gauge := register(name, help)
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case <-ticker.C:
				latency, err := probe()
				if err != nil {
					slog.Error("can't probe metric", "name", name, "error", err)
					continue
				}
				gauge.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

// pushed mirrors the last sample from ch, falling back to 0 once nothing
// arrived for clearInterval.
func pushed(as *utils.AppState, name, help string, clearInterval time.Duration, ch <-chan float64) {
	gauge := register(name, help)
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		clearTicker := time.NewTicker(clearInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

func Init(as *utils.AppState) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := tickerInterval * 2

	polled(as, "planner_kv_empty_read_microsec",
		"The latency of an empty key-value store read in microseconds",
		tickerInterval, func() (time.Duration, error) { return emptyRead(as) })
	pushed(as, "planner_kv_read_microsec",
		"The latency of a key-value store read in microseconds",
		clearTickerInterval, as.MetricChans.DatabaseRead)
	pushed(as, "planner_kv_write_microsec",
		"The latency of a key-value store write in microseconds",
		clearTickerInterval, as.MetricChans.DatabaseWrite)
	pushed(as, "planner_discord_webhook_microsec",
		"The latency of a discord webhook call in microseconds",
		clearTickerInterval, as.MetricChans.DiscordSendWebhook)
}
