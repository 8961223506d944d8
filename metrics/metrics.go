package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const (
	MetricsNamespace = "rprelay"
)

var (
	Debug bool

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "events_total",
		Help:      "Count of runner lifecycle events received",
	}, []string{
		"action",
	})

	malformedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "malformed_events_total",
		Help:      "Count of malformed runner events dropped",
	})

	reportingCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reporting_calls_total",
		Help:      "Count of calls to the reporting backend",
	}, []string{
		"call",
		"result",
	})

	itemsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "items_finished_total",
		Help:      "Count of finished scopes by kind and final status",
	}, []string{
		"kind",
		"status",
	})

	droppedLogsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dropped_logs_total",
		Help:      "Count of log messages dropped because no scope was open",
	})

	openFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "open_frames",
		Help:      "Number of currently open execution scopes",
	})
)

func RecordEvent(action string) {
	if Debug {
		log.Debug().Str("m", "events_total").Str("action", action).Msg("metric inc")
	}
	eventsTotal.WithLabelValues(action).Inc()
}

func RecordMalformedEvent() {
	malformedEventsTotal.Inc()
}

func RecordReportingCall(call string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if Debug {
		log.Debug().Str("m", "reporting_calls_total").Str("call", call).Str("result", result).Msg("metric inc")
	}
	reportingCallsTotal.WithLabelValues(call, result).Inc()
}

func RecordItemFinished(kind string, status string) {
	itemsFinishedTotal.WithLabelValues(kind, status).Inc()
}

func RecordDroppedLog() {
	droppedLogsTotal.Inc()
}

func RecordFrameOpened() {
	openFrames.Inc()
}

func RecordFrameClosed() {
	openFrames.Dec()
}
