package staking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerLocks(t *testing.T) {
	var locks ownerLocks
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("alice")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks)

	// distinct owners don't block each other
	unlockA := locks.lock("alice")
	unlockB := locks.lock("bob")
	assert.Len(t, locks.locks, 2)
	unlockB()
	unlockA()
	assert.Empty(t, locks.locks)
}

func TestSystemClock(t *testing.T) {
	assert.Greater(t, SystemClock.Now(), int64(1_600_000_000))
	assert.Equal(t, int64(5), ClockFunc(func() int64 { return 5 }).Now())
}
