package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLedgerTransfer(t *testing.T) {
	l := NewMemLedger()
	l.Mint(LP, "alice", 100)

	require.NoError(t, l.Transfer(context.Background(), Transfer{Asset: LP, From: "alice", To: LPVault, Amount: 60}))
	assert.Equal(t, uint64(40), l.Balance(LP, "alice"))
	assert.Equal(t, uint64(60), l.Balance(LP, LPVault))

	err := l.Transfer(context.Background(), Transfer{Asset: LP, From: "alice", To: LPVault, Amount: 41})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(40), l.Balance(LP, "alice"))
	assert.Equal(t, uint64(60), l.Balance(LP, LPVault))

	// assets are separate books
	assert.ErrorIs(t, l.Transfer(context.Background(), Transfer{Asset: Reward, From: "alice", To: "bob", Amount: 1}), ErrInsufficientFunds)
	assert.NoError(t, l.Transfer(context.Background(), Transfer{Asset: Reward, From: "alice", To: "bob", Amount: 0}))
}

func TestMemLedgerOverflowAndCancel(t *testing.T) {
	l := NewMemLedger()
	l.Mint(LP, "alice", 10)
	l.Mint(LP, "bob", math.MaxUint64)
	assert.Error(t, l.Transfer(context.Background(), Transfer{Asset: LP, From: "alice", To: "bob", Amount: 1}))
	assert.Equal(t, uint64(10), l.Balance(LP, "alice"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Transfer(ctx, Transfer{Asset: LP, From: "alice", To: "carol", Amount: 1}), context.Canceled)
}

func TestReverse(t *testing.T) {
	xfer := Transfer{Asset: Reward, From: RewardsVault, To: "alice", Amount: 5}
	assert.Equal(t, Transfer{Asset: Reward, From: "alice", To: RewardsVault, Amount: 5}, xfer.Reverse())
	assert.Equal(t, "5 reward from rewards_vault to alice", xfer.String())
}
