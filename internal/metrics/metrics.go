package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "azaan_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	alarmsScheduled   *prometheus.CounterVec
	alarmFailures     *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	rebuildTotal      *prometheus.CounterVec
	rebuildLatency    *prometheus.HistogramVec
	playbackTotal     *prometheus.CounterVec
	pendingAlarms     prometheus.Gauge
)

// Init registers the service metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		alarmsScheduled = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarms_scheduled_total",
				Help: "Total prayer alarms handed to the notification platform",
			},
			[]string{"prayer"},
		)
		alarmFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_failures_total",
				Help: "Total prayer alarms the platform rejected",
			},
			[]string{"prayer"},
		)
		notificationsSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notification_events_total",
				Help: "Total notification events by kind",
			},
			[]string{"kind"},
		)
		rebuildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rebuild_total",
				Help: "Total schedule rebuilds by path and result",
			},
			[]string{"path", "result"},
		)
		rebuildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "rebuild_latency_seconds",
				Help:    "Schedule rebuild latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		)
		playbackTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "playback_total",
				Help: "Total azaan playbacks by result",
			},
			[]string{"result"},
		)
		pendingAlarms = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "pending_alarms",
				Help: "Prayer alarms currently armed",
			},
		)

		prometheus.MustRegister(
			alarmsScheduled,
			alarmFailures,
			notificationsSent,
			rebuildTotal,
			rebuildLatency,
			playbackTotal,
			pendingAlarms,
		)
	})
}

// IncAlarmScheduled counts an alarm accepted by the platform.
func IncAlarmScheduled(prayer string) {
	if alarmsScheduled != nil {
		alarmsScheduled.WithLabelValues(prayer).Inc()
	}
}

// IncAlarmFailure counts an alarm the platform rejected.
func IncAlarmFailure(prayer string) {
	if alarmFailures != nil {
		alarmFailures.WithLabelValues(prayer).Inc()
	}
}

func IncNotificationEvent(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if notificationsSent != nil {
		notificationsSent.WithLabelValues(kind).Inc()
	}
}

// ObserveRebuild records a rebuild result and how long it took.
func ObserveRebuild(path, result string, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if rebuildTotal != nil {
		rebuildTotal.WithLabelValues(path, result).Inc()
	}
	if rebuildLatency != nil && result != ResultSkipped {
		rebuildLatency.WithLabelValues(path).Observe(duration.Seconds())
	}
}

func IncPlayback(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if playbackTotal != nil {
		playbackTotal.WithLabelValues(result).Inc()
	}
}

// SetPendingAlarms sets the armed alarm gauge.
func SetPendingAlarms(n int) {
	if pendingAlarms != nil {
		pendingAlarms.Set(float64(n))
	}
}
