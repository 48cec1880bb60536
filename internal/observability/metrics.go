package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "serialmux"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames fully written to the transport.",
		},
		[]string{"link", "kind"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received and dispatched.",
		},
		[]string{"link", "kind"},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Received frames discarded, by reason.",
		},
		[]string{"link", "reason"},
	)
	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Frames the transport did not fully accept.",
		},
		[]string{"link", "kind"},
	)
	syncTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_transitions_total",
			Help:      "Sync state changes, by entered state.",
		},
		[]string{"link", "state"},
	)
	synced = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synced",
			Help:      "1 while the link is synced.",
		},
		[]string{"link"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesSent, framesReceived, framesDropped,
			sendFailures, syncTransitions, synced,
		)
	})
}

// ChannelKind labels a channel number as control or data traffic.
func ChannelKind(channel uint8) string {
	if channel == 0 {
		return "control"
	}
	return "data"
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameSent(link string, channel uint8) {
	RegisterMetrics()
	framesSent.WithLabelValues(link, ChannelKind(channel)).Inc()
}

func RecordFrameReceived(link string, channel uint8) {
	RegisterMetrics()
	framesReceived.WithLabelValues(link, ChannelKind(channel)).Inc()
}

func RecordFrameDropped(link, reason string) {
	RegisterMetrics()
	framesDropped.WithLabelValues(link, reason).Inc()
}

func RecordSendFailure(link string, channel uint8) {
	RegisterMetrics()
	sendFailures.WithLabelValues(link, ChannelKind(channel)).Inc()
}

func RecordSyncChange(link string, isSynced bool) {
	RegisterMetrics()
	state, value := "unsynced", 0.0
	if isSynced {
		state, value = "synced", 1.0
	}
	syncTransitions.WithLabelValues(link, state).Inc()
	synced.WithLabelValues(link).Set(value)
}
