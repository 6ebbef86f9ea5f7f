package podautoscaler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"minihpa/object"
)

const metricsNamespace = "minihpa"

var (
	currentReplicasGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "current_replicas",
		Help:      "Replica count observed at the start of the last cycle.",
	}, []string{"target"})
	desiredReplicasGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "desired_replicas",
		Help:      "Stabilized and clamped replica count of the last cycle.",
	}, []string{"target"})
	targetStatusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "target_status",
		Help:      "1 for the current status of the target, 0 otherwise.",
	}, []string{"target", "status"})
	scalingEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "scaling_events_total",
		Help:      "Applied replica changes.",
	}, []string{"target", "direction"})
	scaleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "scale_failures_total",
		Help:      "Scale requests that failed after all retries.",
	}, []string{"target"})
	skippedCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "skipped_cycles_total",
		Help:      "Ticks skipped because the previous cycle of the target was still running.",
	}, []string{"target"})
	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of one reconciliation cycle.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target"})
)

var allStatuses = []object.TargetStatus{object.StatusHealthy, object.StatusMetricsUnknown, object.StatusDegraded}

func recordStatus(target string, status object.TargetStatus) {
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		targetStatusGauge.WithLabelValues(target, string(s)).Set(v)
	}
}

func forgetTarget(target string) {
	currentReplicasGauge.DeleteLabelValues(target)
	desiredReplicasGauge.DeleteLabelValues(target)
	scaleFailuresTotal.DeleteLabelValues(target)
	skippedCyclesTotal.DeleteLabelValues(target)
	evaluationDuration.DeleteLabelValues(target)
	for _, s := range allStatuses {
		targetStatusGauge.DeleteLabelValues(target, string(s))
	}
	for _, d := range []object.Direction{object.DirectionUp, object.DirectionDown} {
		scalingEventsTotal.DeleteLabelValues(target, d.String())
	}
}
