package podautoscaler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	testingclock "k8s.io/utils/clock/testing"
	"minihpa/object"
)

var errTransient = errors.New("connection refused")

// fakeMetrics serves the mean value of each metric by name.
type fakeMetrics struct {
	mtx    sync.Mutex
	values map[string]float64
	err    error
}

func newFakeMetrics(values map[string]float64) *fakeMetrics {
	return &fakeMetrics{values: values}
}

func (f *fakeMetrics) set(name string, value float64) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.values[name] = value
}

func (f *fakeMetrics) fail(err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.err = err
}

func (f *fakeMetrics) GetMetric(ctx context.Context, target *object.Autoscaler, spec object.MetricSpec) (*object.MetricSnapshot, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[spec.Name]
	if !ok {
		return nil, errors.Wrapf(ErrMetricsUnavailable, "no samples for %s", spec)
	}
	return &object.MetricSnapshot{Value: v, Timestamp: time.Now(), ReadyInstances: 1, ReportedInstances: 1}, nil
}

type fakeWorkload struct {
	mtx      sync.Mutex
	replicas map[string]int32
	// failures is how many SetReplicas calls fail with failErr before one succeeds
	failures int
	failErr  error
	getErr   error
	sets     []int32
	// getHook runs inside GetCurrentReplicas, without the lock held
	getHook func(ctx context.Context)
}

func newFakeWorkload() *fakeWorkload {
	return &fakeWorkload{replicas: map[string]int32{}, failErr: errTransient}
}

func (f *fakeWorkload) setCurrent(name string, n int32) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.replicas[name] = n
}

func (f *fakeWorkload) current(name string) int32 {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.replicas[name]
}

func (f *fakeWorkload) setCalls() []int32 {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]int32(nil), f.sets...)
}

func (f *fakeWorkload) GetCurrentReplicas(ctx context.Context, ref object.HPARef) (int32, error) {
	f.mtx.Lock()
	hook := f.getHook
	f.mtx.Unlock()
	if hook != nil {
		hook(ctx)
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	n, ok := f.replicas[ref.Name]
	if !ok {
		return 0, errors.Errorf("%s not found", ref.Name)
	}
	return n, nil
}

func (f *fakeWorkload) SetReplicas(ctx context.Context, ref object.HPARef, replicas int32) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.sets = append(f.sets, replicas)
	if f.failures > 0 {
		f.failures--
		return f.failErr
	}
	f.replicas[ref.Name] = replicas
	return nil
}

func int32Ptr(v int32) *int32 { return &v }

func newAutoscaler(name string, min, max int32, metrics ...object.MetricSpec) *object.Autoscaler {
	if len(metrics) == 0 {
		metrics = []object.MetricSpec{{Name: object.MetricCPU, TargetValue: 100}}
	}
	as := &object.Autoscaler{
		Metadata: object.ObjectMeta{Name: name},
		Spec: object.HPASpec{
			ScaleTargetRef: object.HPARef{Kind: object.KindDeployment, Name: name},
			MinReplicas:    min,
			MaxReplicas:    max,
			Metrics:        metrics,
		},
	}
	as.Complete()
	return as
}

// driveClock runs fn, stepping clk whenever a timer is armed, until fn returns.
func driveClock(t *testing.T, clk *testingclock.FakeClock, step time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("still waiting on the clock")
		case <-time.After(time.Millisecond):
			if clk.HasWaiters() {
				clk.Step(step)
			}
		}
	}
}
