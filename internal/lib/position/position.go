// Package position holds a single depositor's staked amount and reward bookkeeping.
package position

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Store when the owner has never staked.
var ErrNotFound = errors.New("stake position not found")

type State int

const (
	Empty State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "EMPTY"
}

type Position struct {
	// Identity of the depositor - record key
	Owner string
	// Principal currently staked
	Amount uint64
	// Reward accrued over the life of the position.  Additive - claims and unstakes never reset it.
	RewardDebt uint64
	// Timestamp of the last stake or claim touching this position
	LastStakeTime int64
	// Amount can't be withdrawn before this time
	LockupEndTime int64
}

func (p *Position) State() State {
	if p.Amount == 0 {
		return Empty
	}
	return Active
}

// Locked reports whether withdrawal is still blocked at now.
func (p *Position) Locked(now int64) bool {
	return now < p.LockupEndTime
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

func (p *Position) String() string {
	return fmt.Sprintf("Owner: %s, Amount: %d, RewardDebt: %d, LastStakeTime: %d, LockupEndTime: %d, State: %s",
		p.Owner, p.Amount, p.RewardDebt, p.LastStakeTime, p.LockupEndTime, p.State())
}

// Store is keyed by owner.  No cross-position aggregation happens here - the pool total is maintained
// by the staking controller.
type Store interface {
	// Position returns ErrNotFound (possibly wrapped) if the owner has no record.
	Position(owner string) (*Position, error)
	PutPosition(pos *Position) error
}

// GetOrCreate loads the owner's position, or returns a new empty one (not yet saved) whose last stake
// time is now.  created reports which happened.
func GetOrCreate(store Store, owner string, now int64) (pos *Position, created bool, err error) {
	pos, err = store.Position(owner)
	if err == nil {
		return pos, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	return &Position{
		Owner:         owner,
		LastStakeTime: now,
		LockupEndTime: now,
	}, true, nil
}
