package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"minihpa/cmd/hpa-controller/app/config"
	"minihpa/cmd/hpa-controller/app/options"
	apiserver "minihpa/pkg/apiserver/app"
	apiconfig "minihpa/pkg/apiserver/config"
	"minihpa/pkg/client"
	"minihpa/pkg/controller/autoscaler"
	"minihpa/pkg/controller/podautoscaler"
	"minihpa/pkg/etcdstore"
	"minihpa/pkg/klog"
	"minihpa/pkg/messaging"
	"minihpa/util/file"
)

const defaultConfigName = ".minihpa"

func NewHPAControllerCommand() *cobra.Command {
	opts := options.NewHPAControllerOptions()
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "hpa-controller",
		Short:         "Horizontal autoscaling control loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfigFile(cfgFile)
			if err != nil {
				return err
			}
			if path := v.ConfigFileUsed(); path != "" {
				klog.Infof("Using config file: %s\n", path)
			}
			if err := options.ApplyConfigFile(cmd.Flags(), v); err != nil {
				return errors.Wrap(err, "apply config file")
			}
			c, err := opts.Config()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, c.Complete())
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+defaultConfigName+".yaml)")
	cmd.Flags().AddFlagSet(opts.Flags())
	return cmd
}

// loadConfigFile reads the explicit config file, or the optional one in the home directory.
func loadConfigFile(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", cfgFile)
		}
		return v, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return v, nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}
	return v, nil
}

func Run(ctx context.Context, c *config.CompletedConfig) error {
	if err := klog.Configure(c.LogLevel, c.LogFile); err != nil {
		return err
	}
	metrics := client.NewMetricsClient(client.NewPromClient(c.PromURL), c.StaleThreshold, nil)
	workload := client.NewWorkloadClient(c.ApiserverURL)
	hc := podautoscaler.NewHorizontalController(c.Controller(), metrics, workload)

	if c.AmqpURL != "" {
		publisher, err := messaging.NewPublisher(c.Queue())
		if err != nil {
			klog.Warnf("scaling events will not be published: %v\n", err)
		} else {
			events := messaging.NewEventPublisher(publisher, c.EventExchange, 0)
			hc.AddSink(events)
			defer func() {
				events.Close()
				_ = publisher.CloseConnection()
			}()
		}
	}

	if len(c.TargetsFiles) > 0 {
		targets, err := file.LoadAutoscalers(c.TargetsFiles...)
		if err != nil {
			return err
		}
		for _, target := range targets {
			if err := hc.Register(target); err != nil {
				return err
			}
		}
	}

	var configStore apiserver.ConfigStore
	if len(c.EtcdEndpoints) > 0 {
		store, err := etcdstore.NewEtcdStore(c.EtcdEndpoints, c.EtcdTimeout)
		if err != nil {
			return errors.Wrapf(err, "connect etcd %v", c.EtcdEndpoints)
		}
		defer store.Close()
		configStore = store
		go autoscaler.NewAutoscalerController(store, hc, c.ResyncInterval).Run(ctx)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- hc.Run(ctx) }()

	var server *apiserver.Server
	if c.StatusPort > 0 {
		server = apiserver.NewServer(&apiconfig.ServerConfig{
			HttpPort:     c.StatusPort,
			StoreTimeout: c.EtcdTimeout,
		}, hc, configStore)
		go func() { errCh <- server.Run() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		klog.Infof("Shutting down\n")
	case runErr = <-errCh:
		if runErr != nil {
			klog.Errorf("Stopping after error: %v\n", runErr)
		}
	}

	if err := hc.Shutdown(c.ShutdownTimeout); err != nil {
		klog.Errorf("%v\n", err)
		if runErr == nil {
			runErr = err
		}
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			klog.Errorf("Error shutting down status server : %v\n", err)
		}
	}
	return runErr
}
