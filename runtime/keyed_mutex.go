package runtime

import (
	"hash/fnv"
	"sync"
)

const stripeCount = 64

// keyedMutex serializes work per key with a fixed set of stripes.
// Two keys may share a stripe, which only costs some parallelism.
type keyedMutex struct {
	stripes [stripeCount]sync.Mutex
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%stripeCount]
	m.Lock()
	return m.Unlock
}
