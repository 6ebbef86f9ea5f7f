package options

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"minihpa/pkg/controller/autoscaler"
	"minihpa/pkg/messaging"
)

// SourceOptions locate the collaborators of the controller.
type SourceOptions struct {
	PromURL        string
	ApiserverURL   string
	EtcdEndpoints  []string
	EtcdTimeout    time.Duration
	ResyncInterval time.Duration
	AmqpURL        string
	EventExchange  string
	TargetsFiles   []string
}

func (o *SourceOptions) AddFlags(fs *pflag.FlagSet) {
	if o == nil {
		return
	}
	fs.StringVar(&o.PromURL, "prom-url", o.PromURL, "Base URL of the Prometheus server serving the metrics.")
	fs.StringVar(&o.ApiserverURL, "apiserver-url", o.ApiserverURL, "Base URL of the registry API owning the workloads.")
	fs.StringSliceVar(&o.EtcdEndpoints, "etcd-endpoints", o.EtcdEndpoints,
		"etcd endpoints watched for autoscalers under "+autoscaler.Prefix+". Empty disables hot reload.")
	fs.DurationVar(&o.EtcdTimeout, "etcd-timeout", o.EtcdTimeout, "Dial timeout of etcd.")
	fs.DurationVar(&o.ResyncInterval, "resync-interval", o.ResyncInterval, "Period of the full relist of autoscalers from etcd.")
	fs.StringVar(&o.AmqpURL, "amqp-url", o.AmqpURL, "Broker receiving scaling events. Empty disables publishing.")
	fs.StringVar(&o.EventExchange, "event-exchange", o.EventExchange, "Fanout exchange scaling events are published to.")
	fs.StringSliceVar(&o.TargetsFiles, "targets-file", o.TargetsFiles, "YAML files of autoscalers registered at start.")
}

func (o *SourceOptions) SetDefault() {
	o.PromURL = "http://localhost:9090"
	o.ApiserverURL = "http://localhost:8080"
	o.EtcdTimeout = 5 * time.Second
	o.ResyncInterval = autoscaler.DefaultResyncInterval
	o.EventExchange = messaging.DefaultEventExchange
}

func (o *SourceOptions) Validate() error {
	if o.PromURL == "" {
		return errors.New("--prom-url is required")
	}
	if o.ApiserverURL == "" {
		return errors.New("--apiserver-url is required")
	}
	if len(o.EtcdEndpoints) == 0 && len(o.TargetsFiles) == 0 {
		return errors.New("no autoscaler source, set --targets-file or --etcd-endpoints")
	}
	return nil
}
