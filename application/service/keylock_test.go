package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	locks := NewKeyLock()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for range 20 {
		wg.Go(func() {
			unlock := locks.Lock("conn-1")
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.Len(), "released keys are dropped")
}

func TestKeyLock_DifferentKeysDoNotBlock(t *testing.T) {
	locks := NewKeyLock()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
}

func TestKeyLock_UnlockIsIdempotent(t *testing.T) {
	locks := NewKeyLock()
	unlock := locks.Lock("a")
	unlock()
	unlock()
	assert.Zero(t, locks.Len())

	relock := locks.Lock("a")
	relock()
}
