package staking

import (
	"errors"
	"fmt"

	"github.com/TxnLab/lpstaking/internal/lib/position"
	"github.com/TxnLab/lpstaking/internal/lib/reward"
	"github.com/TxnLab/lpstaking/internal/lib/store"
)

var (
	ErrLockupNotEnded         = errors.New("lock-up period has not ended yet")
	ErrUnauthorized           = errors.New("caller is not a pool administrator")
	ErrInvalidAmount          = errors.New("stake amount must be greater than zero")
	ErrInvalidLockup          = errors.New("lock-up period can't be negative")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrTransferTimeout        = fmt.Errorf("%w: timed out", ErrTransferFailed)
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrConservation           = errors.New("pool total staked doesn't match sum of positions")

	// Lower layer sentinels, re-exported so callers only need this package for errors.Is checks
	ErrArithmeticOverflow = reward.ErrOverflow
	ErrPoolNotFound       = store.ErrPoolNotFound
	ErrPositionNotFound   = position.ErrNotFound
)
