package metric

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/src-server/utils"
)

func TestRegisterTwiceReturnsSameGauge(t *testing.T) {
	first := register("planner_test_twice_microsec", "test gauge")
	t.Cleanup(func() { prometheus.Unregister(first) })

	second := register("planner_test_twice_microsec", "test gauge")
	assert.Same(t, first, second)
}

func TestEmptyRead(t *testing.T) {
	rawDB, bunDB, err := utils.OpenDatabase(context.Background(), utils.DB_DRIVER_SQLITE, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	latency, err := emptyRead(&utils.AppState{BunDB: bunDB})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latency, time.Duration(0))
}

func TestPushedStopsOnShutdown(t *testing.T) {
	as := &utils.AppState{MetricChans: utils.NewMetric()}
	pushed(as, "planner_test_pushed_microsec", "test gauge", time.Hour, as.MetricChans.DatabaseRead)

	as.MetricChans.ObserveRead(1500 * time.Microsecond)
	assert.Eventually(t, func() bool {
		g, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			return false
		}
		for _, mf := range g {
			if mf.GetName() == "planner_test_pushed_microsec" {
				return mf.GetMetric()[0].GetGauge().GetValue() == 1500
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	as.GracefulShutdown()
	assert.Eventually(t, func() bool {
		g, _ := prometheus.DefaultGatherer.Gather()
		for _, mf := range g {
			if mf.GetName() == "planner_test_pushed_microsec" {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}
