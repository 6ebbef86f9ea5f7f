package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"minihpa/object"
	"minihpa/pkg/apiserver/config"
	"minihpa/pkg/klog"
)

// Controller is the part of the horizontal controller served over HTTP.
type Controller interface {
	List() []object.AutoscalerView
	Get(id string) (object.AutoscalerView, error)
	Events() []object.ScalingEvent
	Register(target *object.Autoscaler) error
	Unregister(id string) bool
	SyncTarget(ctx context.Context, id string) (object.Phase, error)
}

// ConfigStore persists autoscalers. When set, writes go through it and reach the controller by watch.
type ConfigStore interface {
	Put(ctx context.Context, key string, val []byte) error
	Del(ctx context.Context, key string) error
}

type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	controller   Controller
	store        ConfigStore
	storeTimeout time.Duration
}

func NewServer(c *config.ServerConfig, controller Controller, store ConfigStore) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog)
	s := &Server{
		engine:       engine,
		controller:   controller,
		store:        store,
		storeTimeout: c.StoreTimeout,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", c.HttpPort),
			Handler: engine,
		},
	}

	{
		engine.GET(config.HealthPath, s.health)
		engine.GET(config.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	{
		engine.GET(config.AutoscalerPath, s.list)
		engine.GET(config.NamePath, s.validate, s.get)
		engine.PUT(config.NamePath, s.validate, s.put)
		engine.DELETE(config.NamePath, s.validate, s.del)
		engine.POST(config.SyncPath, s.validate, s.sync)
	}
	{
		engine.GET(config.EventPath, s.events)
	}

	return s
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	klog.Infof("status server listening on %s\n", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	klog.Debugf("%s %s %d %s\n", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}
