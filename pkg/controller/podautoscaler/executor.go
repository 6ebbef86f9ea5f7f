package podautoscaler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
	"minihpa/object"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 2 * time.Second
)

// WorkloadManager owns the instances, the controller only reads and writes counts.
type WorkloadManager interface {
	GetCurrentReplicas(ctx context.Context, ref object.HPARef) (int32, error)
	SetReplicas(ctx context.Context, ref object.HPARef, replicas int32) error
}

func clamp(desired, minReplicas, maxReplicas int32) int32 {
	if desired < minReplicas {
		return minReplicas
	}
	if desired > maxReplicas {
		return maxReplicas
	}
	return desired
}

// ScaleExecutor pushes replica counts to the workload manager with bounded exponential backoff.
type ScaleExecutor struct {
	workload   WorkloadManager
	maxRetries int
	backoff    time.Duration
	clock      clock.Clock
}

func NewScaleExecutor(workload WorkloadManager, maxRetries int, backoff time.Duration, clk clock.Clock) *ScaleExecutor {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ScaleExecutor{
		workload:   workload,
		maxRetries: maxRetries,
		backoff:    backoff,
		clock:      clk,
	}
}

func (e *ScaleExecutor) newBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: e.backoff,
		Factor:   2,
		Steps:    e.maxRetries,
		Cap:      maxRetryBackoff,
	}
}

/*
Scale asks the workload manager for replicas, retrying transient failures up to
maxRetries times. The backoff state lives in this call only, so a target that
gave up starts from scratch on its next cycle.
*/
func (e *ScaleExecutor) Scale(ctx context.Context, ref object.HPARef, replicas int32) (int, error) {
	backoff := e.newBackoff()
	attempts := 0
	for {
		attempts++
		err := e.workload.SetReplicas(ctx, ref, replicas)
		if err == nil {
			return attempts, nil
		}
		if permanent(err) || attempts > e.maxRetries {
			return attempts, errors.Wrapf(ErrScaleExecutionFailed, "%s/%s to %d after %d attempts: %v", ref.Kind, ref.Name, replicas, attempts, err)
		}
		// once Cap is hit Step keeps returning it
		timer := e.clock.NewTimer(backoff.Step())
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempts, errors.Wrapf(ErrScaleExecutionFailed, "%s/%s to %d: %v (last error: %v)", ref.Kind, ref.Name, replicas, ctx.Err(), err)
		case <-timer.C():
		}
	}
}
