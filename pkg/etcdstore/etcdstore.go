package etcdstore

import (
	"context"
	"time"

	etcd "go.etcd.io/etcd/client/v3"
	"minihpa/pkg/klog"
)

type Store struct {
	client *etcd.Client
}

type WatchResType int

const (
	PUT    WatchResType = 0
	DELETE WatchResType = 1
)

type WatchRes struct {
	ResType         WatchResType
	Key             string
	ResourceVersion int64
	ValueBytes      []byte
}

type ListRes struct {
	Key             string
	ResourceVersion int64
	ValueBytes      []byte
}

func NewEtcdStore(endpoints []string, timeout time.Duration) (*Store, error) {
	cli, err := etcd.New(etcd.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	timeoutContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = cli.Status(timeoutContext, endpoints[0])
	if err != nil {
		_ = cli.Close()
		return nil, err
	}
	return &Store{client: cli}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, key string, val []byte) error {
	kv := etcd.NewKV(s.client)
	_, err := kv.Put(ctx, key, string(val))
	return err
}

func (s *Store) Del(ctx context.Context, key string) error {
	kv := etcd.NewKV(s.client)
	_, err := kv.Delete(ctx, key)
	return err
}

func (s *Store) PrefixGet(ctx context.Context, key string) ([]ListRes, error) {
	kv := etcd.NewKV(s.client)
	response, err := kv.Get(ctx, key, etcd.WithPrefix())
	if err != nil {
		return nil, err
	}
	ret := make([]ListRes, 0, len(response.Kvs))
	for _, kv := range response.Kvs {
		ret = append(ret, ListRes{
			Key:             string(kv.Key),
			ResourceVersion: kv.ModRevision,
			ValueBytes:      kv.Value,
		})
	}
	return ret, nil
}

// PrefixWatch streams changes under key until ctx is done or the watch breaks, then closes the channel.
func (s *Store) PrefixWatch(ctx context.Context, key string) <-chan WatchRes {
	watchResChan := make(chan WatchRes)
	watch := func(c chan<- WatchRes) {
		defer close(c)
		watchChan := s.client.Watch(ctx, key, etcd.WithPrefix())
		for watchResponse := range watchChan {
			if err := watchResponse.Err(); err != nil {
				klog.Errorf("Watching prefix %s : %s\n", key, err.Error())
				return
			}
			for _, event := range watchResponse.Events {
				res := WatchRes{
					Key:             string(event.Kv.Key),
					ResourceVersion: event.Kv.ModRevision,
				}
				switch event.Type {
				case etcd.EventTypePut:
					res.ResType = PUT
					res.ValueBytes = event.Kv.Value
				case etcd.EventTypeDelete:
					res.ResType = DELETE
				}
				select {
				case c <- res:
				case <-ctx.Done():
					return
				}
			}
		}
		klog.Infof("Closing prefix watching channel for key %s\n", key)
	}
	go watch(watchResChan)
	return watchResChan
}
