package podautoscaler

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"minihpa/object"
	"minihpa/pkg/klog"
)

// float error guard so that ceil(5 * 1.2) stays 6
const ceilEpsilon = 1e-9

type MetricsClient interface {
	GetMetric(ctx context.Context, target *object.Autoscaler, spec object.MetricSpec) (*object.MetricSnapshot, error)
}

type recommendation struct {
	replicas     int32
	reasonMetric string
	// skipped is set when there is nothing to extrapolate from (zero replicas, zero minimum)
	skipped bool
}

// ReplicaCalculator turns metric snapshots into a single desired replica count.
type ReplicaCalculator struct {
	metrics MetricsClient
}

func NewReplicaCalculator(metrics MetricsClient) *ReplicaCalculator {
	return &ReplicaCalculator{metrics: metrics}
}

/*
Recommend computes one desired count per metric and keeps the largest.

Metrics failing this cycle are skipped. When every metric failed,
ErrAllMetricsUnavailable is returned and there is no recommendation.
On ties the first declared metric is reported as the reason.
*/
func (rc *ReplicaCalculator) Recommend(ctx context.Context, target *object.Autoscaler, current int32) (recommendation, error) {
	base := current
	if current == 0 {
		if target.Spec.MinReplicas == 0 {
			return recommendation{replicas: current, skipped: true}, nil
		}
		base = target.Spec.MinReplicas
	}
	log := klog.WithTarget(target.ID())
	tolerance := target.Tolerance()

	best := recommendation{replicas: -1}
	var lastErr error
	for _, spec := range target.Spec.Metrics {
		snapshot, err := rc.metrics.GetMetric(ctx, target, spec)
		if err != nil {
			log.Warnf("skipping metric %s this cycle: %v\n", spec, err)
			lastErr = err
			continue
		}
		ratio, err := usageRatio(snapshot, spec)
		if err != nil {
			log.Warnf("skipping metric %s this cycle: %v\n", spec, err)
			lastErr = err
			continue
		}
		desired := desiredReplicas(base, current, ratio, tolerance)
		log.Debugf("metric %s ratio %.3f -> %d replicas\n", spec, ratio, desired)
		if desired > best.replicas {
			best = recommendation{replicas: desired, reasonMetric: spec.String()}
		}
	}
	if best.replicas < 0 {
		return recommendation{}, errors.Wrapf(ErrAllMetricsUnavailable, "%s: last error: %v", target.ID(), lastErr)
	}
	return best, nil
}

/*
usageRatio is observed / target, where observed is the mean over ready instances.

Instances that are not ready are left out of the mean instead of counting as zero.
*/
func usageRatio(snapshot *object.MetricSnapshot, spec object.MetricSpec) (float64, error) {
	observed := snapshot.Value
	if len(snapshot.Instances) > 0 {
		var sum float64
		ready := 0
		for _, inst := range snapshot.Instances {
			if !inst.Ready {
				continue
			}
			sum += inst.Value
			ready++
		}
		if ready == 0 {
			return 0, errors.Wrapf(ErrMetricsUnavailable, "%s: no ready instance reported", spec)
		}
		observed = sum / float64(ready)
	} else if snapshot.ReadyInstances == 0 && snapshot.ReportedInstances > 0 {
		return 0, errors.Wrapf(ErrMetricsUnavailable, "%s: no ready instance reported", spec)
	}
	if spec.TargetValue <= 0 {
		return 0, errors.Wrapf(ErrInvalidConfig, "%s: targetValue %v", spec, spec.TargetValue)
	}
	return observed / spec.TargetValue, nil
}

// desiredReplicas applies ceil(base * ratio), or keeps current when ratio is inside the tolerance band.
func desiredReplicas(base, current int32, ratio, tolerance float64) int32 {
	if math.Abs(ratio-1.0) <= tolerance+ceilEpsilon {
		return current
	}
	desired := math.Ceil(float64(base)*ratio - ceilEpsilon)
	if desired > math.MaxInt32 {
		return math.MaxInt32
	}
	if desired < 0 {
		return 0
	}
	return int32(desired)
}
