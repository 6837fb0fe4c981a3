package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLedgerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ledger.json")
	fl, err := OpenFileLedger(path)
	require.NoError(t, err)
	assert.Equal(t, path, fl.Path())

	require.NoError(t, fl.Mint(LP, "alice", 100))
	require.NoError(t, fl.Transfer(context.Background(), Transfer{Asset: LP, From: "alice", To: LPVault, Amount: 30}))
	assert.ErrorIs(t, fl.Transfer(context.Background(), Transfer{Asset: LP, From: "alice", To: LPVault, Amount: 71}), ErrInsufficientFunds)

	reopened, err := OpenFileLedger(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), reopened.Balance(LP, "alice"))
	assert.Equal(t, uint64(30), reopened.Balance(LP, LPVault))
	assert.Zero(t, reopened.Balance(Reward, "alice"))
}

func TestFileLedgerCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := OpenFileLedger(path)
	assert.ErrorContains(t, err, "parsing ledger file")
}
