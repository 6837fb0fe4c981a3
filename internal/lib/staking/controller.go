// Package staking implements the lifecycle operations of a share based staking pool: depositors lock LP
// tokens for a period and accrue reward tokens over time.  Every operation refreshes the pool accumulator,
// mutates pool and position state inside a single store transaction and moves funds through the ledger
// before committing, so a failed transfer leaves no trace.
package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TxnLab/lpstaking/internal/lib/events"
	"github.com/TxnLab/lpstaking/internal/lib/ledger"
	"github.com/TxnLab/lpstaking/internal/lib/misc"
	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/position"
	"github.com/TxnLab/lpstaking/internal/lib/reward"
	"github.com/TxnLab/lpstaking/internal/lib/store"
)

const DefaultTransferTimeout = 30 * time.Second

const (
	opInitialize    = "initialize"
	opStake         = "stake"
	opUnstake       = "unstake"
	opClaim         = "claim"
	opRefresh       = "refresh"
	opSetRate       = "set_rate"
	opSetMultiplier = "set_multiplier"
	opLateTransfer  = "late_transfer"
)

type Config struct {
	PoolID           string
	DB               *store.DB
	Ledger           ledger.Ledger
	Clock            Clock
	Emitter          *events.Emitter
	Logger           *slog.Logger
	TransferTimeout  time.Duration
	// LateTransferWait bounds how long an abandoned transfer is watched for late completion.
	// Defaults to 10x TransferTimeout.
	LateTransferWait time.Duration
}

type Controller struct {
	poolID           string
	db               *store.DB
	ledger           ledger.Ledger
	clock            Clock
	emitter          *events.Emitter
	logger           *slog.Logger
	transferTimeout  time.Duration
	lateTransferWait time.Duration

	// poolLock serializes every state transition of the pool.  ownerLocks is always taken first.
	poolLock   sync.Mutex
	ownerLocks ownerLocks
}

func New(cfg Config) (*Controller, error) {
	if cfg.DB == nil {
		return nil, errors.New("staking controller requires a store")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("staking controller requires a ledger")
	}
	c := &Controller{
		poolID:           cfg.PoolID,
		db:               cfg.DB,
		ledger:           cfg.Ledger,
		clock:            cfg.Clock,
		emitter:          cfg.Emitter,
		logger:           cfg.Logger,
		transferTimeout:  cfg.TransferTimeout,
		lateTransferWait: cfg.LateTransferWait,
	}
	if c.poolID == "" {
		c.poolID = pool.DefaultID
	}
	if err := store.CheckPoolID(c.poolID); err != nil {
		return nil, err
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.transferTimeout <= 0 {
		c.transferTimeout = DefaultTransferTimeout
	}
	if c.lateTransferWait <= 0 {
		c.lateTransferWait = 10 * c.transferTimeout
	}
	return c, nil
}

func (c *Controller) PoolID() string {
	return c.poolID
}

// InitializePool creates the pool with the given parameters.  It can only ever succeed once per pool id.
func (c *Controller) InitializePool(ctx context.Context, caller Caller, rewardRate, rewardMultiplier uint64) (*pool.Pool, error) {
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, err := c.db.Begin(c.poolID)
	if err != nil {
		return nil, c.failed(opInitialize, err)
	}
	defer tx.Discard()

	_, err = tx.Pool()
	if err == nil {
		return nil, c.failed(opInitialize, fmt.Errorf("pool %s: %w", c.poolID, ErrPoolAlreadyInitialized))
	}
	if !errors.Is(err, store.ErrPoolNotFound) {
		return nil, c.failed(opInitialize, err)
	}
	now := c.clock.Now()
	p := pool.New(c.poolID, rewardRate, rewardMultiplier, now)
	if err = tx.PutPool(p); err != nil {
		return nil, c.failed(opInitialize, err)
	}
	if err = c.commit(ctx, tx); err != nil {
		return nil, c.failed(opInitialize, err)
	}
	c.succeeded(opInitialize, p)
	misc.Infof(c.logger, "pool %s initialized by %s, rate:%d, multiplier:%d", c.poolID, caller.ID, rewardRate, rewardMultiplier)
	c.emitter.Emit(ctx, events.Initialize{
		Header:           c.header(now),
		RewardRate:       rewardRate,
		RewardMultiplier: rewardMultiplier,
	})
	return p.Clone(), nil
}

// Stake adds amount to the caller's position, creating it if needed, and locks the whole position until
// now+lockupPeriod.  A shorter lockup than the one in place is allowed and replaces it.
func (c *Controller) Stake(ctx context.Context, caller Caller, amount uint64, lockupPeriod int64) (*position.Position, error) {
	if amount == 0 {
		return nil, c.failed(opStake, ErrInvalidAmount)
	}
	if lockupPeriod < 0 {
		return nil, c.failed(opStake, fmt.Errorf("lock-up of %d: %w", lockupPeriod, ErrInvalidLockup))
	}
	unlock := c.ownerLocks.lock(caller.ID)
	defer unlock()
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, p, now, err := c.begin()
	if err != nil {
		return nil, c.failed(opStake, err)
	}
	defer tx.Discard()

	pos, _, err := position.GetOrCreate(tx, caller.ID, now)
	if err != nil {
		return nil, c.failed(opStake, err)
	}
	if pos.Amount, err = reward.CheckedAdd(pos.Amount, amount); err != nil {
		return nil, c.failed(opStake, fmt.Errorf("position %s amount: %w", caller.ID, err))
	}
	if pos.LockupEndTime, err = lockupEnd(now, lockupPeriod); err != nil {
		return nil, c.failed(opStake, err)
	}
	// rewards since the prior stake are credited against the new (post deposit) amount
	owed, err := reward.RewardsOwed(pos.Amount, now-pos.LastStakeTime, p.RewardMultiplier)
	if err != nil {
		return nil, c.failed(opStake, fmt.Errorf("position %s rewards: %w", caller.ID, err))
	}
	if pos.RewardDebt, err = reward.CheckedAdd(pos.RewardDebt, owed); err != nil {
		return nil, c.failed(opStake, fmt.Errorf("position %s reward debt: %w", caller.ID, err))
	}
	pos.LastStakeTime = now
	if err = p.AddStake(amount); err != nil {
		return nil, c.failed(opStake, err)
	}

	xfer := ledger.Transfer{Asset: ledger.LP, From: caller.ID, To: ledger.LPVault, Amount: amount}
	if err = c.apply(ctx, tx, p, pos, xfer); err != nil {
		return nil, c.failed(opStake, err)
	}
	c.succeeded(opStake, p)
	promTransferred.WithLabelValues(c.poolID, string(xfer.Asset), "in").Add(float64(amount))
	misc.Debugf(c.logger, "staked %d for %s, lockup ends:%d", amount, caller.ID, pos.LockupEndTime)
	c.emitter.Emit(ctx, events.Stake{
		Header:       c.header(now),
		User:         caller.ID,
		Amount:       amount,
		LockupPeriod: lockupPeriod,
	})
	return pos.Clone(), nil
}

// Unstake withdraws the caller's entire staked amount once the lockup has ended.  Reward debt is left intact.
func (c *Controller) Unstake(ctx context.Context, caller Caller) (uint64, error) {
	unlock := c.ownerLocks.lock(caller.ID)
	defer unlock()
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, p, now, err := c.begin()
	if err != nil {
		return 0, c.failed(opUnstake, err)
	}
	defer tx.Discard()

	pos, err := tx.Position(caller.ID)
	if err != nil {
		return 0, c.failed(opUnstake, err)
	}
	if pos.Locked(now) {
		return 0, c.failed(opUnstake, fmt.Errorf("position %s locked until %d, now:%d: %w", caller.ID, pos.LockupEndTime, now, ErrLockupNotEnded))
	}
	amount := pos.Amount
	if err = p.RemoveStake(amount); err != nil {
		return 0, c.failed(opUnstake, err)
	}
	pos.Amount = 0

	xfer := ledger.Transfer{Asset: ledger.LP, From: ledger.LPVault, To: caller.ID, Amount: amount}
	if err = c.apply(ctx, tx, p, pos, xfer); err != nil {
		return 0, c.failed(opUnstake, err)
	}
	c.succeeded(opUnstake, p)
	promTransferred.WithLabelValues(c.poolID, string(xfer.Asset), "out").Add(float64(amount))
	misc.Debugf(c.logger, "unstaked %d for %s", amount, caller.ID)
	c.emitter.Emit(ctx, events.Unstake{
		Header: c.header(now),
		User:   caller.ID,
		Amount: amount,
	})
	return amount, nil
}

// ClaimRewards pays out rewards accrued since the caller's last stake or claim, from the rewards vault.
// A claim that computes to zero still succeeds (and still moves the last stake time forward).
func (c *Controller) ClaimRewards(ctx context.Context, caller Caller) (uint64, error) {
	unlock := c.ownerLocks.lock(caller.ID)
	defer unlock()
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, p, now, err := c.begin()
	if err != nil {
		return 0, c.failed(opClaim, err)
	}
	defer tx.Discard()

	pos, err := tx.Position(caller.ID)
	if err != nil {
		return 0, c.failed(opClaim, err)
	}
	rewards, err := reward.RewardsOwed(pos.Amount, now-pos.LastStakeTime, p.RewardMultiplier)
	if err != nil {
		return 0, c.failed(opClaim, fmt.Errorf("position %s rewards: %w", caller.ID, err))
	}
	if pos.RewardDebt, err = reward.CheckedAdd(pos.RewardDebt, rewards); err != nil {
		return 0, c.failed(opClaim, fmt.Errorf("position %s reward debt: %w", caller.ID, err))
	}
	pos.LastStakeTime = now

	xfer := ledger.Transfer{Asset: ledger.Reward, From: ledger.RewardsVault, To: caller.ID, Amount: rewards}
	if err = c.apply(ctx, tx, p, pos, xfer); err != nil {
		return 0, c.failed(opClaim, err)
	}
	c.succeeded(opClaim, p)
	promTransferred.WithLabelValues(c.poolID, string(xfer.Asset), "out").Add(float64(rewards))
	misc.Debugf(c.logger, "claimed %d rewards for %s", rewards, caller.ID)
	c.emitter.Emit(ctx, events.ClaimRewards{
		Header:  c.header(now),
		User:    caller.ID,
		Rewards: rewards,
	})
	return rewards, nil
}

// RefreshPool brings the pool accumulator up to the current time.  Open to anyone.
func (c *Controller) RefreshPool(ctx context.Context) (*pool.Pool, error) {
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, p, now, err := c.begin()
	if err != nil {
		return nil, c.failed(opRefresh, err)
	}
	defer tx.Discard()
	if err = c.apply(ctx, tx, p, nil); err != nil {
		return nil, c.failed(opRefresh, err)
	}
	c.succeeded(opRefresh, p)
	c.emitter.Emit(ctx, events.UpdatePool{
		Header:            c.header(now),
		AccRewardPerShare: p.AccRewardPerShare,
	})
	return p.Clone(), nil
}

// SetRewardRate replaces the pool reward rate.  The pool is refreshed first so time already elapsed keeps
// accruing at the old rate.
func (c *Controller) SetRewardRate(ctx context.Context, caller Caller, rate uint64) (*pool.Pool, error) {
	return c.setParam(ctx, caller, opSetRate, func(p *pool.Pool, now int64) events.Event {
		p.SetRewardRate(rate)
		return events.SetRewardRate{Header: c.header(now), NewRate: rate}
	})
}

// SetRewardMultiplier replaces the multiplier used by the per position reward formula.
func (c *Controller) SetRewardMultiplier(ctx context.Context, caller Caller, multiplier uint64) (*pool.Pool, error) {
	return c.setParam(ctx, caller, opSetMultiplier, func(p *pool.Pool, now int64) events.Event {
		p.SetRewardMultiplier(multiplier)
		return events.SetRewardMultiplier{Header: c.header(now), NewMultiplier: multiplier}
	})
}

func (c *Controller) setParam(ctx context.Context, caller Caller, op string, set func(p *pool.Pool, now int64) events.Event) (*pool.Pool, error) {
	if !caller.Admin {
		return nil, c.failed(op, fmt.Errorf("%s by %s: %w", op, caller.ID, ErrUnauthorized))
	}
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	tx, p, now, err := c.load()
	if err != nil {
		return nil, c.failed(op, err)
	}
	defer tx.Discard()
	// Accrual that overflows is dropped so parameters can always be changed.
	if err = p.Refresh(now); errors.Is(err, ErrArithmeticOverflow) {
		misc.Warnf(c.logger, "%s: dropping accrual since %d, refresh overflowed: %v", op, p.LastUpdateTime, err)
		p.Skip(now)
	} else if err != nil {
		return nil, c.failed(op, err)
	}
	ev := set(p, now)
	if err = c.apply(ctx, tx, p, nil); err != nil {
		return nil, c.failed(op, err)
	}
	c.succeeded(op, p)
	misc.Infof(c.logger, "%s by %s, pool now %s", op, caller.ID, p)
	c.emitter.Emit(ctx, ev)
	return p.Clone(), nil
}

// begin opens the store transaction, loads the pool and refreshes it.
func (c *Controller) begin() (*store.Tx, *pool.Pool, int64, error) {
	tx, p, now, err := c.load()
	if err != nil {
		return nil, nil, 0, err
	}
	if err = p.Refresh(now); err != nil {
		tx.Discard()
		return nil, nil, 0, err
	}
	return tx, p, now, nil
}

// load opens the store transaction and loads the pool.  The returned time never precedes the pool's last
// update so time can't appear to run backwards across operations.
func (c *Controller) load() (*store.Tx, *pool.Pool, int64, error) {
	tx, err := c.db.Begin(c.poolID)
	if err != nil {
		return nil, nil, 0, err
	}
	p, err := tx.Pool()
	if err != nil {
		tx.Discard()
		return nil, nil, 0, err
	}
	now := c.clock.Now()
	if now < p.LastUpdateTime {
		misc.Warnf(c.logger, "clock at %d is behind pool last update %d, using the latter", now, p.LastUpdateTime)
		now = p.LastUpdateTime
	}
	return tx, p, now, nil
}

// apply stages the pool (and position if non-nil), performs the transfers, then commits.  Nothing is
// committed unless every transfer succeeded.
func (c *Controller) apply(ctx context.Context, tx *store.Tx, p *pool.Pool, pos *position.Position, xfers ...ledger.Transfer) error {
	if err := tx.PutPool(p); err != nil {
		return err
	}
	if pos != nil {
		if err := tx.PutPosition(pos); err != nil {
			return err
		}
	}
	return c.commit(ctx, tx, xfers...)
}

func (c *Controller) commit(ctx context.Context, tx *store.Tx, xfers ...ledger.Transfer) error {
	var done []ledger.Transfer
	for _, xfer := range xfers {
		if err := c.transfer(ctx, xfer); err != nil {
			c.compensate(done...)
			return err
		}
		done = append(done, xfer)
	}
	if err := tx.Commit(); err != nil {
		misc.Errorf(c.logger, "commit failed after transfers completed, reversing: %v", err)
		c.compensate(done...)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// transfer performs xfer bounded by the transfer timeout.  Zero amounts are skipped.  Should the ledger
// complete a transfer after we've given up on it, it's reversed once it does.
func (c *Controller) transfer(ctx context.Context, xfer ledger.Transfer) error {
	if xfer.Amount == 0 {
		return nil
	}
	tctx, cancel := context.WithTimeout(ctx, c.transferTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- c.ledger.Transfer(tctx, xfer)
	}()
	select {
	case err := <-result:
		if err == nil {
			return nil
		}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w: %w", xfer, ErrTransferTimeout, err)
		}
		return fmt.Errorf("%s: %w: %w", xfer, ErrTransferFailed, err)
	case <-tctx.Done():
		go c.watchLate(xfer, result)
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w: %w", xfer, ErrTransferFailed, ctx.Err())
		}
		return fmt.Errorf("%s after %v: %w", xfer, c.transferTimeout, ErrTransferTimeout)
	}
}

// watchLate reverses an abandoned transfer should the ledger still complete it.  A ledger ignoring its deadline
// is only waited on for lateTransferWait, after which the transfer is left for manual reconciliation.
func (c *Controller) watchLate(xfer ledger.Transfer, result <-chan error) {
	timer := time.NewTimer(c.lateTransferWait)
	defer timer.Stop()
	select {
	case err := <-result:
		if err == nil {
			misc.Warnf(c.logger, "abandoned transfer of %s completed late", xfer)
			c.compensate(xfer)
		}
	case <-timer.C:
		promOperations.WithLabelValues(c.poolID, opLateTransfer, "abandoned").Inc()
		misc.Errorf(c.logger, "transfer of %s still outstanding after %v - reconcile manually", xfer, c.transferTimeout+c.lateTransferWait)
	}
}

// compensate reverses completed transfers, newest first.  Failures can only be logged for manual
// reconciliation.
func (c *Controller) compensate(done ...ledger.Transfer) {
	for i := len(done) - 1; i >= 0; i-- {
		rev := done[i].Reverse()
		ctx, cancel := context.WithTimeout(context.Background(), c.transferTimeout)
		err := c.ledger.Transfer(ctx, rev)
		cancel()
		if err != nil {
			misc.Errorf(c.logger, "COMPENSATION FAILED - reconcile manually, transfer of %s: %v", rev, err)
			continue
		}
		misc.Warnf(c.logger, "compensating transfer of %s completed", rev)
	}
}

func (c *Controller) header(now int64) events.Header {
	return events.Header{Pool: c.poolID, Time: now}
}

func (c *Controller) failed(op string, err error) error {
	promOperations.WithLabelValues(c.poolID, op, "error").Inc()
	misc.Debugf(c.logger, "%s failed: %v", op, err)
	return err
}

func (c *Controller) succeeded(op string, p *pool.Pool) {
	promOperations.WithLabelValues(c.poolID, op, "ok").Inc()
	promTotalStaked.WithLabelValues(c.poolID).Set(float64(p.TotalStaked))
	promAccRewardPerShare.WithLabelValues(c.poolID).Set(float64(p.AccRewardPerShare))
	promRewardRate.WithLabelValues(c.poolID).Set(float64(p.RewardRate))
	promRewardMultiplier.WithLabelValues(c.poolID).Set(float64(p.RewardMultiplier))
}

func lockupEnd(now, lockupPeriod int64) (int64, error) {
	end := now + lockupPeriod
	if end < now {
		return 0, fmt.Errorf("lock-up end of %d + %d: %w", now, lockupPeriod, ErrArithmeticOverflow)
	}
	return end, nil
}
