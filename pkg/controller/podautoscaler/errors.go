package podautoscaler

import (
	"github.com/pkg/errors"
	"minihpa/object"
	"minihpa/pkg/client"
)

var (
	ErrMetricsUnavailable = client.ErrMetricsUnavailable
	ErrMetricsStale       = client.ErrMetricsStale
	// ErrAllMetricsUnavailable is returned when no metric of a target produced a value in a cycle.
	ErrAllMetricsUnavailable = errors.New("all metrics unavailable")
	// ErrScaleExecutionFailed is returned once the scale executor gave up retrying.
	ErrScaleExecutionFailed = errors.New("scale execution failed")
	ErrInvalidBounds        = object.ErrInvalidBounds
	ErrInvalidConfig        = object.ErrInvalidConfig
	// ErrTargetBusy is returned by SyncTarget when a cycle for the target is already running.
	ErrTargetBusy     = errors.New("target evaluation already in progress")
	ErrTargetNotFound = errors.New("target not registered")
)

// permanent reports whether err says retrying is pointless, e.g. a 404 from the workload manager.
func permanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}
