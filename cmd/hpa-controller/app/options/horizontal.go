package options

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"minihpa/object"
	"minihpa/pkg/client"
	"minihpa/pkg/controller/podautoscaler"
)

type HorizontalControllerOptions struct {
	SyncPeriod       time.Duration
	Workers          int
	MaxRetries       int
	RetryBackoff     time.Duration
	DefaultTolerance float64
	StaleThreshold   time.Duration
	ShardCount       int
	RecentEvents     int
}

func (o *HorizontalControllerOptions) AddFlags(fs *pflag.FlagSet) {
	if o == nil {
		return
	}
	fs.DurationVar(&o.SyncPeriod, "sync-period", o.SyncPeriod,
		"Period of the reconciliation loop, also the time budget of one evaluation.")
	fs.IntVar(&o.Workers, "workers", o.Workers,
		"The number of targets that are allowed to be evaluated concurrently.")
	fs.IntVar(&o.MaxRetries, "max-retries", o.MaxRetries,
		"Retries of a failed scale request within one cycle.")
	fs.DurationVar(&o.RetryBackoff, "retry-backoff", o.RetryBackoff,
		"First backoff between scale retries, doubled on every retry.")
	fs.Float64Var(&o.DefaultTolerance, "default-tolerance", o.DefaultTolerance,
		"Tolerance of targets that do not set one. Usage ratios closer than this to 1 do not scale.")
	fs.DurationVar(&o.StaleThreshold, "stale-threshold", o.StaleThreshold,
		"Samples older than this are ignored.")
	fs.IntVar(&o.ShardCount, "shards", o.ShardCount,
		"Number of shards of the target registry.")
	fs.IntVar(&o.RecentEvents, "recent-events", o.RecentEvents,
		"Scaling events kept for the status API.")
}

func (o *HorizontalControllerOptions) SetDefault() {
	o.SyncPeriod = podautoscaler.DefaultSyncPeriod
	o.Workers = podautoscaler.DefaultWorkers
	o.MaxRetries = podautoscaler.DefaultMaxRetries
	o.RetryBackoff = podautoscaler.DefaultRetryBackoff
	o.DefaultTolerance = object.DefaultTolerance
	o.StaleThreshold = client.DefaultStaleThreshold
	o.RecentEvents = podautoscaler.DefaultRecentEvents
}

func (o *HorizontalControllerOptions) Validate() error {
	if o.SyncPeriod <= 0 {
		return errors.New("--sync-period must be positive")
	}
	if o.Workers <= 0 {
		return errors.New("--workers must be positive")
	}
	if o.MaxRetries < 0 {
		return errors.New("--max-retries must not be negative")
	}
	if o.DefaultTolerance < 0 || o.DefaultTolerance >= 1 {
		return errors.New("--default-tolerance must be in [0,1)")
	}
	return nil
}
