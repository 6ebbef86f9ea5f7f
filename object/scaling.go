package object

import "time"

type TargetStatus string

const (
	StatusHealthy        TargetStatus = "Healthy"
	StatusMetricsUnknown TargetStatus = "MetricsUnknown"
	StatusDegraded       TargetStatus = "Degraded"
)

// Phase is where a target is in its evaluation state machine.
type Phase string

const (
	PhaseIdle           Phase = "Idle"
	PhaseEvaluating     Phase = "Evaluating"
	PhaseNoChange       Phase = "NoChange"
	PhaseScalingUp      Phase = "ScalingUp"
	PhaseScalingDown    Phase = "ScalingDown"
	PhaseMetricsUnknown Phase = "MetricsUnknown"
	PhaseDegraded       Phase = "Degraded"
	PhaseUnregistered   Phase = "Unregistered"
)

type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "Up"
	case DirectionDown:
		return "Down"
	default:
		return "None"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DirectionOf classifies a recommendation against the current replica count.
func DirectionOf(current, desired int32) Direction {
	switch {
	case desired > current:
		return DirectionUp
	case desired < current:
		return DirectionDown
	default:
		return DirectionNone
	}
}

type Recommendation struct {
	Replicas  int32     `json:"replicas"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
}

// ScalingEvent records one applied replica change. Never mutated after it is emitted.
type ScalingEvent struct {
	ID           string    `json:"id"`
	Target       string    `json:"target"`
	From         int32     `json:"from"`
	To           int32     `json:"to"`
	Direction    Direction `json:"direction"`
	ReasonMetric string    `json:"reasonMetric"`
	Timestamp    time.Time `json:"timestamp"`
}

type AutoscalerStatus struct {
	CurrentReplicas int32        `json:"currentReplicas"`
	DesiredReplicas int32        `json:"desiredReplicas"`
	Status          TargetStatus `json:"status"`
	Phase           Phase        `json:"phase"`
	// LastOutcome is the phase the latest finished cycle ended in
	LastOutcome   Phase      `json:"lastOutcome,omitempty"`
	LastScaleTime *time.Time `json:"lastScaleTime,omitempty"`
	LastEvaluated *time.Time `json:"lastEvaluated,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	SkippedCycles int64      `json:"skippedCycles"`
}

// AutoscalerView is what the status API returns for one target.
type AutoscalerView struct {
	Autoscaler Autoscaler       `json:"autoscaler"`
	Status     AutoscalerStatus `json:"status"`
}

/*******************Metrics*************************/

type InstanceMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Ready bool    `json:"ready"`
}

// MetricSnapshot is one reading of one metric for one target, owned by a single evaluation.
type MetricSnapshot struct {
	// Value is the mean over ready instances, used when Instances is empty
	Value             float64          `json:"value"`
	Timestamp         time.Time        `json:"timestamp"`
	ReadyInstances    int32            `json:"readyInstances"`
	ReportedInstances int32            `json:"reportedInstances"`
	Instances         []InstanceMetric `json:"instances,omitempty"`
}
