package service

import "sync"

// keyedMutex serializes work per tracker without contending unrelated
// trackers. The tracker population is small and stable, so entries are
// kept for the process lifetime instead of being evicted.
type keyedMutex struct {
	locks sync.Map // string -> *sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
