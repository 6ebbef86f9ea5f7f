package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"
	"minihpa/object"
)

const DefaultStaleThreshold = time.Minute

var (
	// ErrMetricsUnavailable means the provider errored, was unreachable or had nothing for the target.
	ErrMetricsUnavailable = errors.New("metrics unavailable")
	// ErrMetricsStale means the newest usable sample is older than the staleness threshold.
	ErrMetricsStale = errors.New("metrics stale")
)

// Provider is the external metrics source.
type Provider interface {
	Query(ctx context.Context, selector string, metric object.MetricSpec) (*object.MetricSnapshot, error)
}

// MetricsClient is the only component talking to the metrics source.
type MetricsClient struct {
	provider       Provider
	staleThreshold time.Duration
	clock          clock.PassiveClock
}

func NewMetricsClient(provider Provider, staleThreshold time.Duration, clk clock.PassiveClock) *MetricsClient {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &MetricsClient{
		provider:       provider,
		staleThreshold: staleThreshold,
		clock:          clk,
	}
}

// GetMetric reads one metric of one target. ctx must carry a deadline.
func (mc *MetricsClient) GetMetric(ctx context.Context, target *object.Autoscaler, spec object.MetricSpec) (*object.MetricSnapshot, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.Wrap(ErrMetricsUnavailable, "query without deadline refused")
	}
	selector := target.Spec.Selector
	if selector == "" {
		selector = target.Spec.ScaleTargetRef.Name
	}
	snapshot, err := mc.provider.Query(ctx, selector, spec)
	if err != nil {
		if errors.Is(err, ErrMetricsStale) || errors.Is(err, ErrMetricsUnavailable) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrMetricsUnavailable, "%s for %s: %v", spec, target.ID(), err)
	}
	if snapshot == nil {
		return nil, errors.Wrapf(ErrMetricsUnavailable, "%s for %s: no samples", spec, target.ID())
	}
	snap := *snapshot
	// providers may only count the ready instances
	if snap.ReportedInstances < snap.ReadyInstances {
		snap.ReportedInstances = snap.ReadyInstances
	}
	if snap.ReadyInstances == 0 && len(snap.Instances) == 0 {
		return nil, errors.Wrapf(ErrMetricsUnavailable, "%s for %s: no ready instance", spec, target.ID())
	}
	snapshot = &snap
	if snapshot.Timestamp.IsZero() {
		return nil, errors.Wrapf(ErrMetricsStale, "%s for %s: sample without timestamp", spec, target.ID())
	}
	if age := mc.clock.Since(snapshot.Timestamp); age > mc.staleThreshold {
		return nil, errors.Wrapf(ErrMetricsStale, "%s for %s: sample is %s old", spec, target.ID(), age.Round(time.Second))
	}
	return snapshot, nil
}
