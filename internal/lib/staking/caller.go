package staking

import (
	"sync"
	"time"
)

// Caller is an identity already verified by the surrounding authentication layer.  Admin is the
// (also pre-verified) capability to change pool parameters.
type Caller struct {
	ID    string
	Admin bool
}

type Clock interface {
	// Now returns the current logical time in seconds.
	Now() int64
}

type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// SystemClock is wall clock unix seconds.
var SystemClock = ClockFunc(func() int64 { return time.Now().Unix() })

// ownerLocks hands out one mutex per owner, dropping it once nobody holds or waits on it.
type ownerLocks struct {
	sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.Mutex
	refs int
}

func (o *ownerLocks) lock(owner string) (unlock func()) {
	o.Lock()
	if o.locks == nil {
		o.locks = map[string]*ownerLock{}
	}
	l, found := o.locks[owner]
	if !found {
		l = &ownerLock{}
		o.locks[owner] = l
	}
	l.refs++
	o.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		o.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, owner)
		}
		o.Unlock()
	}
}
