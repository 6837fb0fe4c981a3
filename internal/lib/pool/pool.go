// Package pool defines the shared staking pool and its lazily refreshed reward accumulator.
package pool

import (
	"fmt"

	"github.com/TxnLab/lpstaking/internal/lib/reward"
)

// DefaultID is the pool identifier used when a deployment runs a single pool.
const DefaultID = "pool"

type Pool struct {
	// ID of this pool - also the key it is stored under
	ID string
	// Reward units minted per unit of time
	RewardRate uint64
	// Scaling factor fed into the per-position reward formula
	RewardMultiplier uint64
	// Cumulative reward per unit of stake since pool inception - never decreases
	AccRewardPerShare uint64
	// Timestamp of the last accumulator refresh - never decreases
	LastUpdateTime int64
	// Sum of every live position amount
	TotalStaked uint64
}

// New returns a freshly initialized pool with nothing staked.
func New(id string, rewardRate, rewardMultiplier uint64, now int64) *Pool {
	return &Pool{
		ID:               id,
		RewardRate:       rewardRate,
		RewardMultiplier: rewardMultiplier,
		LastUpdateTime:   now,
	}
}

func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}

// Refresh brings the accumulator up to now. When something is staked the per-share index grows by
// floor(RewardRate * elapsed / TotalStaked); the update time always moves to now (unless now is in the past,
// in which case nothing moves). Accrual during windows with nothing staked is dropped.
// On error the pool is left unchanged.
func (p *Pool) Refresh(now int64) error {
	if now < p.LastUpdateTime {
		return nil
	}
	elapsed := reward.Elapsed(p.LastUpdateTime, now)
	if p.TotalStaked > 0 && elapsed > 0 {
		delta, err := reward.MulDiv(p.RewardRate, uint64(elapsed), p.TotalStaked)
		if err != nil {
			return fmt.Errorf("pool %s reward per share delta: %w", p.ID, err)
		}
		acc, err := reward.CheckedAdd(p.AccRewardPerShare, delta)
		if err != nil {
			return fmt.Errorf("pool %s accumulated reward per share: %w", p.ID, err)
		}
		p.AccRewardPerShare = acc
	}
	p.LastUpdateTime = now
	return nil
}

// Skip moves the update time to now without accruing anything for the elapsed window.  Used to recover a pool
// whose accumulator can't be advanced.
func (p *Pool) Skip(now int64) {
	if now > p.LastUpdateTime {
		p.LastUpdateTime = now
	}
}

// SetRewardRate replaces the rate.  It does not refresh - callers refresh first so already accrued
// amounts aren't retroactively changed.
func (p *Pool) SetRewardRate(rate uint64) {
	p.RewardRate = rate
}

// SetRewardMultiplier replaces the multiplier, see SetRewardRate.
func (p *Pool) SetRewardMultiplier(multiplier uint64) {
	p.RewardMultiplier = multiplier
}

func (p *Pool) AddStake(amount uint64) error {
	total, err := reward.CheckedAdd(p.TotalStaked, amount)
	if err != nil {
		return fmt.Errorf("pool %s total staked: %w", p.ID, err)
	}
	p.TotalStaked = total
	return nil
}

func (p *Pool) RemoveStake(amount uint64) error {
	total, err := reward.CheckedSub(p.TotalStaked, amount)
	if err != nil {
		return fmt.Errorf("pool %s total staked underflow removing %d: %w", p.ID, amount, err)
	}
	p.TotalStaked = total
	return nil
}

func (p *Pool) String() string {
	return fmt.Sprintf("ID: %s, RewardRate: %d, RewardMultiplier: %d, AccRewardPerShare: %d, LastUpdateTime: %d, TotalStaked: %d",
		p.ID, p.RewardRate, p.RewardMultiplier, p.AccRewardPerShare, p.LastUpdateTime, p.TotalStaked)
}
