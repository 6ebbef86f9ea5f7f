package podautoscaler

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	testingclock "k8s.io/utils/clock/testing"
	"minihpa/object"
)

const testSyncPeriod = 15 * time.Second

func newTestStabilizer(up, down time.Duration) (*Stabilizer, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewStabilizer(up, down, testSyncPeriod, clk), clk
}

func TestStabilizeUpImmediately(t *testing.T) {
	s, _ := newTestStabilizer(0, 5*time.Minute)
	got, dir := s.Stabilize(3, 6)
	assert.Equal(t, int32(6), got)
	assert.Equal(t, object.DirectionUp, dir)
}

func TestStabilizeDownAfterWindow(t *testing.T) {
	s, clk := newTestStabilizer(0, 5*time.Minute)
	for i := 0; i < 20; i++ {
		got, dir := s.Stabilize(5, 3)
		assert.Equal(t, int32(5), got, "held at step %d", i)
		assert.Equal(t, object.DirectionNone, dir)
		clk.Step(testSyncPeriod)
	}
	// 5 minutes after the tracker was created, nothing challenged the decrease
	got, dir := s.Stabilize(5, 3)
	assert.Equal(t, int32(3), got)
	assert.Equal(t, object.DirectionDown, dir)
}

func TestStabilizeDownUsesHighestInWindow(t *testing.T) {
	s, clk := newTestStabilizer(0, time.Minute)
	s.Stabilize(8, 4)
	clk.Step(30 * time.Second)
	s.Stabilize(8, 6)
	clk.Step(30 * time.Second)
	got, _ := s.Stabilize(8, 2)
	assert.Equal(t, int32(6), got)
}

func TestStabilizeLowThenHighSuppressesDown(t *testing.T) {
	s, clk := newTestStabilizer(0, 5*time.Minute)
	s.Stabilize(5, 3)
	clk.Step(time.Minute)
	// back at the current count, challenges the pending decrease
	got, dir := s.Stabilize(5, 5)
	assert.Equal(t, int32(5), got)
	assert.Equal(t, object.DirectionNone, dir)

	clk.Step(4 * time.Minute)
	got, _ = s.Stabilize(5, 3)
	assert.Equal(t, int32(5), got, "only 4 minutes since the challenge")

	clk.Step(time.Minute)
	got, _ = s.Stabilize(5, 3)
	assert.Equal(t, int32(3), got)
}

func TestStabilizeUpChallengesDown(t *testing.T) {
	s, clk := newTestStabilizer(0, 2*time.Minute)
	clk.Step(2 * time.Minute)
	got, _ := s.Stabilize(5, 7)
	assert.Equal(t, int32(7), got)

	// the window has long passed since creation, but not since the increase
	clk.Step(time.Minute)
	got, _ = s.Stabilize(7, 3)
	assert.Equal(t, int32(7), got)
}

func TestStabilizeUpWithWindow(t *testing.T) {
	s, clk := newTestStabilizer(time.Minute, 5*time.Minute)
	got, _ := s.Stabilize(3, 6)
	assert.Equal(t, int32(3), got)
	clk.Step(30 * time.Second)
	got, _ = s.Stabilize(3, 7)
	assert.Equal(t, int32(3), got)
	clk.Step(30 * time.Second)
	got, dir := s.Stabilize(3, 6)
	assert.Equal(t, int32(7), got)
	assert.Equal(t, object.DirectionUp, dir)
}

func TestStabilizeNeverAgainstDirection(t *testing.T) {
	s, clk := newTestStabilizer(0, time.Minute)
	clk.Step(time.Minute)
	s.Stabilize(6, 5)
	// current dropped below the recorded recommendation outside of the loop
	got, dir := s.Stabilize(4, 3)
	assert.Equal(t, int32(4), got)
	assert.Equal(t, object.DirectionNone, dir)
}

func TestStabilizerResize(t *testing.T) {
	s, clk := newTestStabilizer(0, 5*time.Minute)
	s.Stabilize(5, 3)
	s.Resize(time.Second, time.Minute, testSyncPeriod)
	up, down := s.Windows()
	assert.Equal(t, time.Second, up)
	assert.Equal(t, time.Minute, down)

	clk.Step(time.Minute)
	got, _ := s.Stabilize(5, 2)
	assert.Equal(t, int32(3), got, "history recorded before the resize is kept")
}

func TestHistoryCapacity(t *testing.T) {
	assert.Equal(t, 44, historyCapacity(5*time.Minute, testSyncPeriod))
	assert.Equal(t, 4, historyCapacity(0, testSyncPeriod))
	assert.Equal(t, maxHistoryCapacity, historyCapacity(time.Hour, time.Second))
}

func TestStabilizeDownKeepsMaximumUnderManySyncs(t *testing.T) {
	s, clk := newTestStabilizer(0, 5*time.Minute)
	clk.Step(5 * time.Minute)
	got, _ := s.Stabilize(10, 9)
	assert.Equal(t, int32(9), got)

	// far more out of band syncs than the buffer holds, all inside one window
	capacity := s.histories[object.DirectionDown].recs.Cap()
	for i := 0; i < capacity+16; i++ {
		clk.Step(time.Second)
		got, _ = s.Stabilize(10, 2)
		assert.Equal(t, int32(9), got, "sync %d", i)
	}
}

func TestStabilizeHistoryMergesWhenFull(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC))
	s := NewStabilizer(0, 5*time.Minute, 5*time.Minute, clk)
	down := s.histories[object.DirectionDown]
	assert.Equal(t, 6, down.recs.Cap())
	clk.Step(5 * time.Minute)

	// strictly decreasing, nothing is dominated
	for r := int32(20); r > 10; r-- {
		got, _ := s.Stabilize(30, r)
		assert.Equal(t, int32(20), got)
		clk.Step(time.Second)
	}
	assert.Equal(t, 6, down.recs.Len())
	assert.Equal(t, int32(20), down.recs.GetElements()[0].Replicas)
}

func TestStabilizeDropsDominatedEntries(t *testing.T) {
	s, clk := newTestStabilizer(0, time.Minute)
	s.Stabilize(10, 4)
	clk.Step(time.Second)
	s.Stabilize(10, 6)
	clk.Step(time.Second)
	s.Stabilize(10, 5)

	recs := s.histories[object.DirectionDown].recs.GetElements()
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, int32(6), recs[0].Replicas)
	assert.Equal(t, int32(5), recs[1].Replicas)
}
