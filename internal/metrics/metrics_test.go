package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHelpersBeforeInit(t *testing.T) {
	// helpers must be safe to call when Init was never run
	assert.NotPanics(t, func() {
		IncAlarmScheduled("fajr")
		ObserveRebuild("", "", time.Second)
		SetPendingAlarms(3)
	})
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	IncAlarmScheduled("fajr")
	IncAlarmScheduled("fajr")
	IncAlarmFailure("isha")
	ObserveRebuild("marker", ResultSuccess, 20*time.Millisecond)
	SetPendingAlarms(5)

	assert.InDelta(t, 2, testutil.ToFloat64(alarmsScheduled.WithLabelValues("fajr")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(alarmFailures.WithLabelValues("isha")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rebuildTotal.WithLabelValues("marker", ResultSuccess)), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(pendingAlarms), 0)
}
