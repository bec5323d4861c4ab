package service

import "sync"

const lockStripes = 64

// keyLock serializes work per product ID using a fixed set of mutexes.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLock) stripe(productID int64) *sync.Mutex {
	i := productID % lockStripes
	if i < 0 {
		i = -i
	}
	return &k.stripes[i]
}

// lock acquires the stripe for productID and returns its release func.
func (k *keyLock) lock(productID int64) func() {
	m := k.stripe(productID)
	m.Lock()
	return m.Unlock
}

// lockAll acquires every stripe in index order.
func (k *keyLock) lockAll() func() {
	for i := range k.stripes {
		k.stripes[i].Lock()
	}
	return func() {
		for i := len(k.stripes) - 1; i >= 0; i-- {
			k.stripes[i].Unlock()
		}
	}
}
