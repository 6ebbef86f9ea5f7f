package config

import "time"

/*
The status server exposes the autoscalers known to the controller

	GET    /healthz
	GET    /metrics
	GET    /api/v1/autoscalers
	GET    /api/v1/autoscalers/:name
	PUT    /api/v1/autoscalers/:name
	DELETE /api/v1/autoscalers/:name
	POST   /api/v1/autoscalers/:name/sync
	GET    /api/v1/events?target=web,api&limit=20
*/

const (
	HealthPath     = "/healthz"
	MetricsPath    = "/metrics"
	AutoscalerPath = "/api/v1/autoscalers"
	NamePath       = AutoscalerPath + "/:name"
	SyncPath       = NamePath + "/sync"
	EventPath      = "/api/v1/events"
	ParamName      = "name"
	QueryTarget    = "target"
	QueryLimit     = "limit"
)

type ServerConfig struct {
	HttpPort int
	// StoreTimeout bounds writes to the configuration store
	StoreTimeout time.Duration
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HttpPort:     8090,
		StoreTimeout: 5 * time.Second,
	}
}
