// Package ledger describes the external balance-transfer service the staking controller moves funds through,
// along with an in-memory implementation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
)

type Asset string

const (
	// LP is the staked position token
	LP Asset = "lp"
	// Reward is the token rewards are paid out in
	Reward Asset = "reward"
)

// Custody accounts under the staking controller's control.  Depositor accounts are identified by the depositor
// identity itself.
const (
	LPVault      = "lp_vault"
	RewardsVault = "rewards_vault"
)

type Transfer struct {
	Asset  Asset
	From   string
	To     string
	Amount uint64
}

func (t Transfer) String() string {
	return fmt.Sprintf("%d %s from %s to %s", t.Amount, t.Asset, t.From, t.To)
}

// Reverse returns the compensating transfer.
func (t Transfer) Reverse() Transfer {
	return Transfer{Asset: t.Asset, From: t.To, To: t.From, Amount: t.Amount}
}

// Ledger performs a single balance transfer which either fully succeeds or has no effect.
// Implementations must honor ctx cancellation/deadline.
type Ledger interface {
	Transfer(ctx context.Context, xfer Transfer) error
}

// MemLedger keeps balances in memory.  Accounts spring into existence when first credited.
type MemLedger struct {
	sync.Mutex
	balances map[Asset]map[string]uint64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{balances: map[Asset]map[string]uint64{}}
}

// Mint credits account out of thin air - for funding depositors and the rewards vault.
func (m *MemLedger) Mint(asset Asset, account string, amount uint64) {
	m.Lock()
	defer m.Unlock()
	if m.balances[asset] == nil {
		m.balances[asset] = map[string]uint64{}
	}
	m.balances[asset][account] += amount
}

func (m *MemLedger) Balance(asset Asset, account string) uint64 {
	m.Lock()
	defer m.Unlock()
	return m.balances[asset][account]
}

func (m *MemLedger) Transfer(ctx context.Context, xfer Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	accounts := m.balances[xfer.Asset]
	if accounts == nil {
		accounts = map[string]uint64{}
		m.balances[xfer.Asset] = accounts
	}
	if accounts[xfer.From] < xfer.Amount {
		return fmt.Errorf("transfer of %s, balance:%d: %w", xfer, accounts[xfer.From], ErrInsufficientFunds)
	}
	if accounts[xfer.To]+xfer.Amount < accounts[xfer.To] {
		return fmt.Errorf("transfer of %s would overflow destination balance", xfer)
	}
	accounts[xfer.From] -= xfer.Amount
	accounts[xfer.To] += xfer.Amount
	return nil
}
