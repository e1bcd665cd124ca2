package practice

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// LockTable serializes state changes per handle. Handles hash onto a fixed
// set of shards; two users sharing a shard only wait on each other. A
// caller must never hold more than one handle's lock at a time.
type LockTable struct {
	shards [lockShards]sync.Mutex
}

func shardFor(handle string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(handle))
	return h.Sum32() % lockShards
}

// Lock acquires handle's shard and returns the matching unlock.
func (t *LockTable) Lock(handle string) (unlock func()) {
	m := &t.shards[shardFor(handle)]
	m.Lock()
	return m.Unlock
}
