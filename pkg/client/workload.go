package client

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"minihpa/object"
)

/*
WorkloadClient reads and writes replica counts through the registry API,
the same /registry/{resource}/{namespace}/{name} layout the apiserver serves.

Only spec.replicas is touched, the rest of the stored object is written back as is.
*/
type WorkloadClient struct {
	base   string
	client *http.Client
}

func NewWorkloadClient(base string) *WorkloadClient {
	return &WorkloadClient{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{},
	}
}

func (w *WorkloadClient) objectURL(ref object.HPARef) (string, error) {
	switch ref.Kind {
	case object.KindDeployment:
		return w.base + "/registry/deployment/default/" + ref.Name, nil
	case object.KindReplicaset:
		return w.base + "/registry/rs/default/" + ref.Name, nil
	default:
		return "", fmt.Errorf("wrong target obj kind [%s]", ref.Kind)
	}
}

func (w *WorkloadClient) getObject(ctx context.Context, url string) (map[string]interface{}, error) {
	data, err := GetWithParams(ctx, w.client, url, nil)
	if err != nil {
		return nil, err
	}
	// the store answers an empty body for missing keys
	if len(data) == 0 {
		return nil, &StatusError{Method: http.MethodGet, URL: url, Code: http.StatusNotFound}
	}
	obj := map[string]interface{}{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrapf(err, "decode %s", url)
	}
	return obj, nil
}

func replicasOf(obj map[string]interface{}) (int32, error) {
	spec, ok := obj["spec"].(map[string]interface{})
	if !ok {
		return 0, errors.New("object has no spec")
	}
	raw, ok := spec["replicas"]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := raw.(float64)
	if !ok || n < 0 || n > math.MaxInt32 || n != math.Trunc(n) {
		return 0, fmt.Errorf("bad spec.replicas %v", raw)
	}
	return int32(n), nil
}

func (w *WorkloadClient) GetCurrentReplicas(ctx context.Context, ref object.HPARef) (int32, error) {
	url, err := w.objectURL(ref)
	if err != nil {
		return 0, err
	}
	obj, err := w.getObject(ctx, url)
	if err != nil {
		return 0, err
	}
	return replicasOf(obj)
}

// SetReplicas is idempotent, asking for the count already stored writes nothing.
func (w *WorkloadClient) SetReplicas(ctx context.Context, ref object.HPARef, replicas int32) error {
	url, err := w.objectURL(ref)
	if err != nil {
		return err
	}
	obj, err := w.getObject(ctx, url)
	if err != nil {
		return err
	}
	current, err := replicasOf(obj)
	if err != nil {
		return err
	}
	if current == replicas {
		return nil
	}
	obj["spec"].(map[string]interface{})["replicas"] = replicas
	return Put(ctx, w.client, url, obj)
}
