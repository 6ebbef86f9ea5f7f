package client

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"minihpa/object"
)

const (
	// resource metrics are exported by every kubelet under this name
	nodeMonitorMetric = "node_monitor"
	readyLabel        = "ready"
	instanceLabel     = "pod"
)

type PromClient struct {
	Base   string
	client *http.Client
}

// NewPromClient base:http://localhost:9090
func NewPromClient(base string) *PromClient {
	return &PromClient{
		Base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{},
	}
}

/*
Query returns one sample per instance matching selector for the given metric.

Instances are the series of the instant vector, told apart by their "pod" label.
A series labelled ready="false" is reported but left out of the mean.
*/
func (c *PromClient) Query(ctx context.Context, selector string, metric object.MetricSpec) (*object.MetricSnapshot, error) {
	query, err := c.makeQuery(selector, metric)
	if err != nil {
		return nil, err
	}
	data, err := GetWithParams(ctx, c.client, c.Base+"/api/v1/query", map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	return getPromRespValue(data)
}

func (c *PromClient) makeQuery(selector string, metric object.MetricSpec) (string, error) {
	if strings.ContainsAny(selector, "\"{}") {
		return "", fmt.Errorf("invalid selector %q", selector)
	}
	// node_monitor{resource="cpu",selector="web"}
	switch metric.Type {
	case object.ResourceMetric:
		if metric.Name != object.MetricCPU && metric.Name != object.MetricMemory {
			return "", fmt.Errorf("invalid resource %q", metric.Name)
		}
		return fmt.Sprintf("%s{resource=\"%s\",selector=\"%s\"}", nodeMonitorMetric, metric.Name, selector), nil
	case object.CustomMetric:
		if strings.ContainsAny(metric.Name, "\"{} ") {
			return "", fmt.Errorf("invalid metric name %q", metric.Name)
		}
		return fmt.Sprintf("%s{selector=\"%s\"}", metric.Name, selector), nil
	default:
		return "", fmt.Errorf("invalid metric type %q", metric.Type)
	}
}

func getPromRespValue(data []byte) (*object.MetricSnapshot, error) {
	prom := object.PromQueryRes{}
	err := json.Unmarshal(data, &prom)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal prometheus response")
	}
	if prom.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed: %s %s", prom.ErrorType, prom.Error)
	}
	if len(prom.Data.ResultArray) == 0 {
		return nil, errors.New("empty query result")
	}
	snapshot := &object.MetricSnapshot{}
	var sum float64
	for _, res := range prom.Data.ResultArray {
		ts, val, err := parseSample(res.Value)
		if err != nil {
			return nil, err
		}
		ready := res.Metric[readyLabel] != "false"
		snapshot.Instances = append(snapshot.Instances, object.InstanceMetric{
			Name:  res.Metric[instanceLabel],
			Value: val,
			Ready: ready,
		})
		snapshot.ReportedInstances++
		if ready {
			snapshot.ReadyInstances++
			sum += val
		}
		// the oldest sample decides how fresh the snapshot is
		if snapshot.Timestamp.IsZero() || ts.Before(snapshot.Timestamp) {
			snapshot.Timestamp = ts
		}
	}
	if snapshot.ReadyInstances > 0 {
		snapshot.Value = sum / float64(snapshot.ReadyInstances)
	}
	return snapshot, nil
}

func parseSample(value []interface{}) (time.Time, float64, error) {
	if len(value) < 2 {
		return time.Time{}, 0, errors.New("bad query message")
	}
	sec, ok := value[0].(float64)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("bad sample timestamp %v", value[0])
	}
	raw, ok := value[1].(string)
	if !ok {
		return time.Time{}, 0, fmt.Errorf("bad sample value %v", value[1])
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return time.Time{}, 0, fmt.Errorf("sample value %s is not finite", raw)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)), val, nil
}
