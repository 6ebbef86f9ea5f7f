package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"minihpa/object"
)

const listYaml = `
items:
  - metadata:
      name: web
    spec:
      scaleTargetRef:
        kind: Deployment
        name: web
      selector: app=web
      minReplicas: 1
      maxReplicas: 10
      tolerance: 0.05
      metrics:
        - name: cpu
          targetValue: 60
        - name: http_requests
          type: Custom
          targetType: AverageValue
          targetValue: 100
      behavior:
        scaleDown:
          stabilizationWindowSeconds: 120
  - metadata:
      name: api
    spec:
      scaleTargetRef:
        kind: Replicaset
        name: api
      minReplicas: 2
      maxReplicas: 4
      metrics:
        - name: memory
          targetValue: 70
`

const singleYaml = `
metadata:
  name: db
spec:
  scaleTargetRef:
    kind: Deployment
    name: db
  minReplicas: 1
  maxReplicas: 3
  scaleInterval: 60
  metrics:
    - name: cpu
      targetValue: 50
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadAutoscalers(t *testing.T) {
	list := writeFile(t, "targets.yaml", listYaml)
	single := writeFile(t, "db.yaml", singleYaml)

	targets, err := LoadAutoscalers(list, single)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	web := targets[0]
	assert.Equal(t, "web", web.ID())
	assert.Equal(t, "app=web", web.Spec.Selector)
	assert.Equal(t, 0.05, web.Tolerance())
	assert.Len(t, web.Spec.Metrics, 2)
	assert.Equal(t, object.CustomMetric, web.Spec.Metrics[1].Type)
	require.NotNil(t, web.Spec.Behavior.ScaleDown)
	assert.Equal(t, int32(120), *web.Spec.Behavior.ScaleDown.StabilizationWindowSeconds)

	assert.Equal(t, object.KindReplicaset, targets[1].Spec.ScaleTargetRef.Kind)
	assert.Equal(t, "db", targets[2].ID())
	assert.Equal(t, int32(60), targets[2].Spec.ScaleInterval)
}

func TestLoadAutoscalersErrors(t *testing.T) {
	_, err := LoadAutoscalers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not exist")

	_, err = LoadAutoscalers(writeFile(t, "bad.yaml", "items: [\n"))
	assert.ErrorContains(t, err, "unmarshal file")

	_, err = LoadAutoscalers(writeFile(t, "empty.yaml", "foo: bar\n"))
	assert.ErrorContains(t, err, "holds no autoscaler")
}

func TestUnmarshalFileBadInterface(t *testing.T) {
	list := object.AutoscalerList{}
	assert.Error(t, UnmarshalFile(list, "whatever.yaml"))
}
