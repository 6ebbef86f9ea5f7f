package concurrent_map

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

type ConcurrentMapTrait[KEY comparable, VALUE any] struct {
	innerMap map[KEY]VALUE
	mtx      sync.RWMutex
}

func NewConcurrentMapTrait[KEY comparable, VALUE any]() *ConcurrentMapTrait[KEY, VALUE] {
	return &ConcurrentMapTrait[KEY, VALUE]{
		innerMap: make(map[KEY]VALUE),
	}
}

func (c *ConcurrentMapTrait[KEY, VALUE]) Get(key KEY) (VALUE, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	val, ok := c.innerMap[key]
	return val, ok
}

func (c *ConcurrentMapTrait[KEY, VALUE]) Put(key KEY, val VALUE) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.innerMap[key] = val
}

// PutIfAbsent stores val unless key is present, and returns the value now held under key.
func (c *ConcurrentMapTrait[KEY, VALUE]) PutIfAbsent(key KEY, val VALUE) (VALUE, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if old, ok := c.innerMap[key]; ok {
		return old, false
	}
	c.innerMap[key] = val
	return val, true
}

func (c *ConcurrentMapTrait[KEY, VALUE]) Del(key KEY) (VALUE, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	val, ok := c.innerMap[key]
	delete(c.innerMap, key)
	return val, ok
}

func (c *ConcurrentMapTrait[KEY, VALUE]) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.innerMap)
}

// SnapShot returns a copy, safe to range over without holding the lock
func (c *ConcurrentMapTrait[KEY, VALUE]) SnapShot() map[KEY]VALUE {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	m2 := make(map[KEY]VALUE, len(c.innerMap))
	for k, v := range c.innerMap {
		m2[k] = v
	}
	return m2
}

/*
ShardedMap spreads string keys over a fixed number of ConcurrentMapTrait shards,
so writers on different keys rarely contend for the same mutex.
*/
type ShardedMap[VALUE any] struct {
	shards []*ConcurrentMapTrait[string, VALUE]
}

const DefaultShardCount = 32

func NewShardedMap[VALUE any](shardCount int) *ShardedMap[VALUE] {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	sm := &ShardedMap[VALUE]{
		shards: make([]*ConcurrentMapTrait[string, VALUE], shardCount),
	}
	for i := range sm.shards {
		sm.shards[i] = NewConcurrentMapTrait[string, VALUE]()
	}
	return sm
}

func (sm *ShardedMap[VALUE]) shard(key string) *ConcurrentMapTrait[string, VALUE] {
	return sm.shards[xxhash.Sum64String(key)%uint64(len(sm.shards))]
}

func (sm *ShardedMap[VALUE]) Get(key string) (VALUE, bool) {
	return sm.shard(key).Get(key)
}

func (sm *ShardedMap[VALUE]) PutIfAbsent(key string, val VALUE) (VALUE, bool) {
	return sm.shard(key).PutIfAbsent(key, val)
}

func (sm *ShardedMap[VALUE]) Del(key string) (VALUE, bool) {
	return sm.shard(key).Del(key)
}

func (sm *ShardedMap[VALUE]) Len() int {
	n := 0
	for _, s := range sm.shards {
		n += s.Len()
	}
	return n
}

// Values collects every value, locking one shard at a time.
func (sm *ShardedMap[VALUE]) Values() []VALUE {
	var vals []VALUE
	for _, s := range sm.shards {
		for _, v := range s.SnapShot() {
			vals = append(vals, v)
		}
	}
	return vals
}
