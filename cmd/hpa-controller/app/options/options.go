package options

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"minihpa/cmd/hpa-controller/app/config"
)

type ControllerOptions interface {
	AddFlags(fs *pflag.FlagSet)
	SetDefault()
	Validate() error
}

type HPAControllerOptions struct {
	HorizontalController *HorizontalControllerOptions
	Sources              *SourceOptions
	Server               *ServerOptions
}

func NewHPAControllerOptions() *HPAControllerOptions {
	opts := HPAControllerOptions{
		HorizontalController: &HorizontalControllerOptions{},
		Sources:              &SourceOptions{},
		Server:               &ServerOptions{},
	}
	opts.SetDefault()
	return &opts
}

func (opts *HPAControllerOptions) all() []ControllerOptions {
	return []ControllerOptions{opts.HorizontalController, opts.Sources, opts.Server}
}

func (opts *HPAControllerOptions) Flags() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("hpa-controller", pflag.ContinueOnError)
	for _, o := range opts.all() {
		o.AddFlags(flagSet)
	}
	return flagSet
}

func (opts *HPAControllerOptions) SetDefault() {
	for _, o := range opts.all() {
		o.SetDefault()
	}
}

// ApplyConfigFile fills every flag left unset on the command line from v.
func ApplyConfigFile(fs *pflag.FlagSet, v *viper.Viper) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		val := v.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			val = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		err = fs.Set(f.Name, val)
	})
	return err
}

func (opts *HPAControllerOptions) Config() (*config.Config, error) {
	for _, o := range opts.all() {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	h, s, srv := opts.HorizontalController, opts.Sources, opts.Server
	return &config.Config{
		SyncPeriod:       h.SyncPeriod,
		Workers:          h.Workers,
		MaxRetries:       h.MaxRetries,
		RetryBackoff:     h.RetryBackoff,
		DefaultTolerance: h.DefaultTolerance,
		StaleThreshold:   h.StaleThreshold,
		ShardCount:       h.ShardCount,
		RecentEvents:     h.RecentEvents,
		PromURL:          s.PromURL,
		ApiserverURL:     s.ApiserverURL,
		EtcdEndpoints:    s.EtcdEndpoints,
		EtcdTimeout:      s.EtcdTimeout,
		ResyncInterval:   s.ResyncInterval,
		AmqpURL:          s.AmqpURL,
		EventExchange:    s.EventExchange,
		TargetsFiles:     s.TargetsFiles,
		StatusPort:       srv.StatusPort,
		ShutdownTimeout:  srv.ShutdownTimeout,
		LogLevel:         srv.LogLevel,
		LogFile:          srv.LogFile,
	}, nil
}
