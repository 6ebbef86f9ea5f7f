package autoscaler

import (
	"context"
	"path"
	"time"

	jsoniter "github.com/json-iterator/go"
	"minihpa/object"
	"minihpa/pkg/etcdstore"
	"minihpa/pkg/klog"
	concurrentmap "minihpa/util/map"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	Prefix                = "/registry/autoscaler/default"
	DefaultResyncInterval = 30 * time.Second
	rewatchInterval       = 5 * time.Second
)

// Key is where the configuration of the named autoscaler is stored.
func Key(name string) string {
	return Prefix + "/" + name
}

type Store interface {
	PrefixGet(ctx context.Context, key string) ([]etcdstore.ListRes, error)
	PrefixWatch(ctx context.Context, key string) <-chan etcdstore.WatchRes
}

// Registrar is the horizontal controller's registration surface.
type Registrar interface {
	Register(target *object.Autoscaler) error
	Unregister(id string) bool
}

/*
AutoscalerController keeps the horizontal controller's targets in line with
the autoscalers stored under Prefix.

Watch events are applied as they come. A periodic resync lists the prefix
and repairs whatever a broken watch missed, deletions included.
*/
type AutoscalerController struct {
	store          Store
	registrar      Registrar
	resyncInterval time.Duration
	// etcd key -> last applied version
	autoscalerMap *concurrentmap.ConcurrentMapTrait[string, object.VersionedAutoscaler]
}

func NewAutoscalerController(store Store, registrar Registrar, resyncInterval time.Duration) *AutoscalerController {
	if resyncInterval <= 0 {
		resyncInterval = DefaultResyncInterval
	}
	return &AutoscalerController{
		store:          store,
		registrar:      registrar,
		resyncInterval: resyncInterval,
		autoscalerMap:  concurrentmap.NewConcurrentMapTrait[string, object.VersionedAutoscaler](),
	}
}

func (acc *AutoscalerController) Run(ctx context.Context) {
	if err := acc.resync(ctx); err != nil {
		klog.Errorf("Error synchronizing autoscalers : %s\n", err.Error())
	}
	go acc.watchLoop(ctx)

	ticker := time.NewTicker(acc.resyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := acc.resync(ctx); err != nil {
				klog.Errorf("Error synchronizing autoscalers : %s\n", err.Error())
			}
		}
	}
}

func (acc *AutoscalerController) watchLoop(ctx context.Context) {
	for {
		for res := range acc.store.PrefixWatch(ctx, Prefix) {
			acc.handleWatch(res)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(rewatchInterval):
			klog.Warnf("Watch on %s broken, watching again\n", Prefix)
		}
	}
}

func (acc *AutoscalerController) handleWatch(res etcdstore.WatchRes) {
	switch res.ResType {
	case etcdstore.PUT:
		versioned, err := decode(res.Key, res.ResourceVersion, res.ValueBytes)
		if err != nil {
			klog.Errorf("Error decoding autoscaler %s : %s\n", res.Key, err.Error())
			return
		}
		if old, ok := acc.autoscalerMap.Get(res.Key); ok && old.Version >= versioned.Version {
			return
		}
		acc.apply(res.Key, versioned)
	case etcdstore.DELETE:
		acc.remove(res.Key)
	}
}

func (acc *AutoscalerController) resync(ctx context.Context) error {
	resList, err := acc.store.PrefixGet(ctx, Prefix)
	if err != nil {
		return err
	}
	listed := make(map[string]struct{}, len(resList))
	for _, res := range resList {
		listed[res.Key] = struct{}{}
		if old, ok := acc.autoscalerMap.Get(res.Key); ok && old.Version >= res.ResourceVersion {
			continue
		}
		versioned, err := decode(res.Key, res.ResourceVersion, res.ValueBytes)
		if err != nil {
			klog.Errorf("Error decoding autoscaler %s : %s\n", res.Key, err.Error())
			continue
		}
		acc.apply(res.Key, versioned)
	}
	for key := range acc.autoscalerMap.SnapShot() {
		if _, ok := listed[key]; !ok {
			acc.remove(key)
		}
	}
	return nil
}

func (acc *AutoscalerController) apply(key string, versioned object.VersionedAutoscaler) {
	if err := acc.registrar.Register(&versioned.Autoscaler); err != nil {
		klog.Errorf("Rejected autoscaler %s : %s\n", key, err.Error())
		return
	}
	acc.autoscalerMap.Put(key, versioned)
}

func (acc *AutoscalerController) remove(key string) {
	old, ok := acc.autoscalerMap.Del(key)
	if !ok {
		return
	}
	acc.registrar.Unregister(old.Autoscaler.ID())
}

// decode falls back on the last key segment when the stored object carries no name.
func decode(key string, version int64, value []byte) (object.VersionedAutoscaler, error) {
	versioned := object.VersionedAutoscaler{Version: version}
	if err := json.Unmarshal(value, &versioned.Autoscaler); err != nil {
		return versioned, err
	}
	if versioned.Autoscaler.Metadata.Name == "" {
		versioned.Autoscaler.Metadata.Name = path.Base(key)
	}
	return versioned, nil
}
