package object

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

const (
	MetricCPU    string = "cpu"
	MetricMemory string = "memory"
)

type MetricSourceType string

const (
	ResourceMetric MetricSourceType = "Resource"
	CustomMetric   MetricSourceType = "Custom"
)

type MetricTargetType string

const (
	UtilizationTarget  MetricTargetType = "Utilization"
	AverageValueTarget MetricTargetType = "AverageValue"
)

const (
	DefaultTolerance        = 0.1
	DefaultScaleDownWindow  = 5 * time.Minute
	DefaultScaleUpWindow    = time.Duration(0)
	maxStabilizationWindowS = 3600
	KindDeployment          = "Deployment"
	KindReplicaset          = "Replicaset"
)

var (
	ErrInvalidBounds = errors.New("invalid replica bounds")
	ErrInvalidConfig = errors.New("invalid autoscaler config")
)

var validScaleTargetKinds = mapset.NewSet[string](KindDeployment, KindReplicaset)

// Autoscaler is one scalable target together with the policy used to size it.
type Autoscaler struct {
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`
	Spec     HPASpec    `json:"spec" yaml:"spec"`
}

type HPASpec struct {
	ScaleTargetRef HPARef `json:"scaleTargetRef" yaml:"scaleTargetRef"`
	// Selector is handed to the metrics provider to pick the target's instances
	Selector    string       `json:"selector" yaml:"selector"`
	MinReplicas int32        `json:"minReplicas" yaml:"minReplicas"`
	MaxReplicas int32        `json:"maxReplicas" yaml:"maxReplicas"`
	Metrics     []MetricSpec `json:"metrics" yaml:"metrics"`
	Behavior    HPABehavior  `json:"behavior" yaml:"behavior"`
	// Tolerance is the no-op band around a ratio of 1, nil means DefaultTolerance
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	// ScaleInterval in seconds, 0 means every controller tick
	ScaleInterval int32 `json:"scaleInterval" yaml:"scaleInterval"`
}

type HPARef struct {
	// optional value : Deployment, Replicaset
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`
}

type HPABehavior struct {
	ScaleUp   *ScalingRules `json:"scaleUp,omitempty" yaml:"scaleUp,omitempty"`
	ScaleDown *ScalingRules `json:"scaleDown,omitempty" yaml:"scaleDown,omitempty"`
}

type ScalingRules struct {
	StabilizationWindowSeconds *int32 `json:"stabilizationWindowSeconds,omitempty" yaml:"stabilizationWindowSeconds,omitempty"`
}

type MetricSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Type        MetricSourceType `json:"type" yaml:"type"`
	TargetType  MetricTargetType `json:"targetType" yaml:"targetType"`
	TargetValue float64          `json:"targetValue" yaml:"targetValue"`
}

func (m MetricSpec) String() string {
	return fmt.Sprintf("%s/%s", m.Type, m.Name)
}

// DeepCopy returns a copy sharing no slice or pointer with a.
func (a *Autoscaler) DeepCopy() *Autoscaler {
	out := *a
	out.Spec.Metrics = append([]MetricSpec(nil), a.Spec.Metrics...)
	if a.Spec.Tolerance != nil {
		tol := *a.Spec.Tolerance
		out.Spec.Tolerance = &tol
	}
	out.Spec.Behavior.ScaleUp = a.Spec.Behavior.ScaleUp.deepCopy()
	out.Spec.Behavior.ScaleDown = a.Spec.Behavior.ScaleDown.deepCopy()
	return &out
}

func (r *ScalingRules) deepCopy() *ScalingRules {
	if r == nil {
		return nil
	}
	out := &ScalingRules{}
	if r.StabilizationWindowSeconds != nil {
		w := *r.StabilizationWindowSeconds
		out.StabilizationWindowSeconds = &w
	}
	return out
}

func (a *Autoscaler) ID() string {
	return a.Metadata.Name
}

// Complete fills in the defaults of optional fields
func (a *Autoscaler) Complete() {
	for i := range a.Spec.Metrics {
		m := &a.Spec.Metrics[i]
		if m.Type == "" {
			if m.Name == MetricCPU || m.Name == MetricMemory {
				m.Type = ResourceMetric
			} else {
				m.Type = CustomMetric
			}
		}
		if m.TargetType == "" {
			if m.Type == ResourceMetric {
				m.TargetType = UtilizationTarget
			} else {
				m.TargetType = AverageValueTarget
			}
		}
	}
}

func (a *Autoscaler) Tolerance() float64 {
	if a.Spec.Tolerance == nil {
		return DefaultTolerance
	}
	return *a.Spec.Tolerance
}

func (a *Autoscaler) ScaleUpWindow() time.Duration {
	return windowOf(a.Spec.Behavior.ScaleUp, DefaultScaleUpWindow)
}

func (a *Autoscaler) ScaleDownWindow() time.Duration {
	return windowOf(a.Spec.Behavior.ScaleDown, DefaultScaleDownWindow)
}

func windowOf(rules *ScalingRules, def time.Duration) time.Duration {
	if rules == nil || rules.StabilizationWindowSeconds == nil {
		return def
	}
	return time.Duration(*rules.StabilizationWindowSeconds) * time.Second
}

// Validate rejects configurations that must never reach the evaluation loop.
func (a *Autoscaler) Validate() error {
	if a.Metadata.Name == "" {
		return errors.Wrap(ErrInvalidConfig, "metadata.name is empty")
	}
	spec := &a.Spec
	if spec.MinReplicas < 0 || spec.MaxReplicas < 0 {
		return errors.Wrapf(ErrInvalidBounds, "%s: negative replica bound [%d,%d]", a.ID(), spec.MinReplicas, spec.MaxReplicas)
	}
	if spec.MinReplicas > spec.MaxReplicas {
		return errors.Wrapf(ErrInvalidBounds, "%s: minReplicas %d > maxReplicas %d", a.ID(), spec.MinReplicas, spec.MaxReplicas)
	}
	if !validScaleTargetKinds.Contains(spec.ScaleTargetRef.Kind) || spec.ScaleTargetRef.Name == "" {
		return errors.Wrapf(ErrInvalidConfig, "%s: bad scaleTargetRef %+v", a.ID(), spec.ScaleTargetRef)
	}
	if len(spec.Metrics) == 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s: no metrics", a.ID())
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, m := range spec.Metrics {
		if m.Name == "" {
			return errors.Wrapf(ErrInvalidConfig, "%s: metric without name", a.ID())
		}
		if !seen.Add(m.String()) {
			return errors.Wrapf(ErrInvalidConfig, "%s: duplicated metric %s", a.ID(), m)
		}
		if m.Type != ResourceMetric && m.Type != CustomMetric {
			return errors.Wrapf(ErrInvalidConfig, "%s: metric %s has unknown type %q", a.ID(), m.Name, m.Type)
		}
		if m.TargetType != UtilizationTarget && m.TargetType != AverageValueTarget {
			return errors.Wrapf(ErrInvalidConfig, "%s: metric %s has unknown targetType %q", a.ID(), m.Name, m.TargetType)
		}
		if m.TargetValue <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "%s: metric %s targetValue must be positive", a.ID(), m.Name)
		}
	}
	if tol := a.Tolerance(); tol < 0 || tol >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "%s: tolerance %v out of [0,1)", a.ID(), tol)
	}
	for _, rules := range []*ScalingRules{spec.Behavior.ScaleUp, spec.Behavior.ScaleDown} {
		if rules == nil || rules.StabilizationWindowSeconds == nil {
			continue
		}
		if w := *rules.StabilizationWindowSeconds; w < 0 || w > maxStabilizationWindowS {
			return errors.Wrapf(ErrInvalidConfig, "%s: stabilization window %ds out of [0,%d]", a.ID(), w, maxStabilizationWindowS)
		}
	}
	if spec.ScaleInterval < 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s: negative scaleInterval", a.ID())
	}
	return nil
}
