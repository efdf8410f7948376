package service

import "sync"

// KeyLock serializes work per key. Entries are dropped once no goroutine
// holds or waits for them.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates an empty KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLockEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyLock) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
