package staking

import (
	"context"
	"fmt"

	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/position"
	"github.com/TxnLab/lpstaking/internal/lib/reward"
	"github.com/TxnLab/lpstaking/internal/lib/store"
)

// Read only queries work off a store snapshot and take no locks.

func (c *Controller) Pool(ctx context.Context) (*pool.Pool, error) {
	var p *pool.Pool
	err := c.view(func(v *store.View) (err error) {
		p, err = v.Pool()
		return err
	})
	return p, err
}

func (c *Controller) Position(ctx context.Context, owner string) (*position.Position, error) {
	var pos *position.Position
	err := c.view(func(v *store.View) (err error) {
		pos, err = v.Position(owner)
		return err
	})
	return pos, err
}

// Positions returns every position ever created in the pool, ordered by owner.
func (c *Controller) Positions(ctx context.Context) ([]*position.Position, error) {
	var positions []*position.Position
	err := c.view(func(v *store.View) (err error) {
		positions, err = v.Positions()
		return err
	})
	return positions, err
}

// PendingRewards is what ClaimRewards would pay owner if called now.
func (c *Controller) PendingRewards(ctx context.Context, owner string) (uint64, error) {
	var pending uint64
	err := c.view(func(v *store.View) error {
		p, err := v.Pool()
		if err != nil {
			return err
		}
		pos, err := v.Position(owner)
		if err != nil {
			return err
		}
		now := max(c.clock.Now(), p.LastUpdateTime)
		pending, err = reward.RewardsOwed(pos.Amount, now-pos.LastStakeTime, p.RewardMultiplier)
		return err
	})
	return pending, err
}

// Audit verifies the pool total matches the sum of all position amounts.
func (c *Controller) Audit(ctx context.Context) error {
	return c.view(func(v *store.View) error {
		p, err := v.Pool()
		if err != nil {
			return err
		}
		positions, err := v.Positions()
		if err != nil {
			return err
		}
		var sum uint64
		for _, pos := range positions {
			if sum, err = reward.CheckedAdd(sum, pos.Amount); err != nil {
				return fmt.Errorf("summing positions: %w", err)
			}
		}
		if sum != p.TotalStaked {
			return fmt.Errorf("pool %s total:%d, positions:%d: %w", c.poolID, p.TotalStaked, sum, ErrConservation)
		}
		return nil
	})
}

func (c *Controller) view(fn func(v *store.View) error) error {
	v, err := c.db.View(c.poolID)
	if err != nil {
		return err
	}
	defer v.Release()
	return fn(v)
}
