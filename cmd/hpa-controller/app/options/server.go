package options

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type ServerOptions struct {
	StatusPort      int
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFile         string
}

func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	if o == nil {
		return
	}
	fs.IntVar(&o.StatusPort, "status-port", o.StatusPort, "Port of the status API, 0 disables it.")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout,
		"How long running evaluations are waited for on shutdown.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "One of debug, info, warn, error.")
	fs.StringVar(&o.LogFile, "log-file", o.LogFile, "Log to this file instead of stderr.")
}

func (o *ServerOptions) SetDefault() {
	o.StatusPort = 8090
	o.ShutdownTimeout = 10 * time.Second
	o.LogLevel = "info"
}

func (o *ServerOptions) Validate() error {
	if o.StatusPort < 0 || o.StatusPort > 65535 {
		return errors.Errorf("bad --status-port %d", o.StatusPort)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return errors.Wrap(err, "--log-level")
	}
	return nil
}
