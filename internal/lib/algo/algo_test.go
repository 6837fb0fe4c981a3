package algo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/TxnLab/lpstaking/internal/lib/ledger"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"X-API-Key:abc", map[string]string{"X-API-Key": "abc"}},
		{" a : 1 , b:http://x:80", map[string]string{"a": "1", "b": "http://x:80"}},
		{"novalue,c:3", map[string]string{"c": "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHeaders(tt.in))
		})
	}
}

func TestGetNetworkConfig(t *testing.T) {
	t.Setenv("ALGORAND_DATA", "")
	t.Setenv("ALGO_ALGOD_URL", "")
	t.Setenv("ALGO_ALGOD_TOKEN", "")
	t.Setenv("LPSTAKE_LP_ASSET", "1234")
	t.Setenv("LPSTAKE_REWARD_ASSET", "notanumber")
	t.Setenv("LPSTAKE_LP_VAULT", "VAULT")
	t.Setenv("ALGO_ALGOD_HEADERS", "k:v")

	cfg := GetNetworkConfig("sandbox")
	assert.Equal(t, "http://localhost:4001", cfg.NodeURL)
	assert.Len(t, cfg.NodeToken, 64)
	assert.Equal(t, uint64(1234), cfg.LPAssetID)
	assert.Zero(t, cfg.RewardAssetID)
	assert.Equal(t, "VAULT", cfg.LPVault)
	assert.Equal(t, map[string]string{"k": "v"}, cfg.NodeHeaders)
	assert.Contains(t, cfg.String(), "NodeToken: (length:64)")

	assert.Equal(t, "https://testnet-api.algonode.cloud", GetNetworkConfig("testnet").NodeURL)
}

func TestGetNetAndTokenFromFiles(t *testing.T) {
	dir := t.TempDir()
	netFile, tokenFile := filepath.Join(dir, "algod.net"), filepath.Join(dir, "algod.token")
	require.NoError(t, os.WriteFile(netFile, []byte("127.0.0.1:8080\n"), 0600))
	require.NoError(t, os.WriteFile(tokenFile, []byte(" secret \n"), 0600))

	url, token, err := GetNetAndTokenFromFiles(netFile, tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", url)
	assert.Equal(t, "secret", token)

	_, _, err = GetNetAndTokenFromFiles(filepath.Join(dir, "missing"), tokenFile)
	assert.Error(t, err)
}

func TestAdjustParams(t *testing.T) {
	params := types.SuggestedParams{FirstRoundValid: 1000, MinFee: 1000, Fee: 5}
	adjustParams(&params)
	assert.Equal(t, types.Round(999), params.FirstRoundValid)
	assert.Equal(t, types.Round(999+DefaultValidRoundRange), params.LastRoundValid)
	assert.True(t, params.FlatFee)
	assert.Equal(t, types.MicroAlgos(1000), params.Fee)
}

func newAccountMnemonic(t *testing.T) (string, string) {
	t.Helper()
	account := crypto.GenerateAccount()
	phrase, err := mnemonic.FromPrivateKey(account.PrivateKey)
	require.NoError(t, err)
	return account.Address.String(), phrase
}

func TestLocalKeyStore(t *testing.T) {
	addr1, phrase1 := newAccountMnemonic(t)
	addr2, phrase2 := newAccountMnemonic(t)
	t.Setenv("ALGO_MNEMONIC_TEST", phrase1)
	t.Setenv("LPSTAKE_MNEMONIC_VAULT", phrase2)

	ks, err := NewLocalKeyStore(discard)
	require.NoError(t, err)
	assert.True(t, ks.HasAccount(addr1))
	assert.True(t, ks.HasAccount(addr2))
	assert.Subset(t, ks.Accounts(), []string{addr1, addr2})

	_, _, err = ks.SignWithAccount(context.Background(), types.Transaction{}, "nope")
	assert.Error(t, err)

	_, err = ks.AddMnemonic("not a real mnemonic")
	assert.Error(t, err)
}

func TestLocalKeyStoreBadMnemonic(t *testing.T) {
	t.Setenv("LPSTAKE_MNEMONIC_BROKEN", "abandon abandon")
	_, err := NewLocalKeyStore(discard)
	assert.ErrorContains(t, err, "LPSTAKE_MNEMONIC_BROKEN")
}

func TestAssetLedgerAccounts(t *testing.T) {
	lpVault, _ := newAccountMnemonic(t)
	rewardsVault, _ := newAccountMnemonic(t)
	depositor, _ := newAccountMnemonic(t)
	cfg := NetworkConfig{LPAssetID: 10, RewardAssetID: 20, LPVault: lpVault, RewardsVault: rewardsVault}

	_, err := NewAssetLedger(discard, nil, nil, NetworkConfig{LPVault: lpVault, RewardsVault: rewardsVault})
	assert.ErrorIs(t, err, ErrMissingAsset)
	_, err = NewAssetLedger(discard, nil, nil, NetworkConfig{LPAssetID: 10, RewardAssetID: 20, LPVault: "bogus", RewardsVault: rewardsVault})
	assert.ErrorContains(t, err, "lp_vault")

	// an empty key store - nothing can be signed
	ks := &LocalKeyStore{log: discard, keys: map[string]ed25519.PrivateKey{}}
	al, err := NewAssetLedger(discard, nil, ks, cfg)
	require.NoError(t, err)

	addr, err := al.Address(ledger.LPVault)
	require.NoError(t, err)
	assert.Equal(t, lpVault, addr)
	addr, err = al.Address(depositor)
	require.NoError(t, err)
	assert.Equal(t, depositor, addr)
	_, err = al.Address("alice")
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)

	id, err := al.AssetID(ledger.Reward)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), id)
	_, err = al.AssetID("other")
	assert.ErrorIs(t, err, ErrMissingAsset)

	err = al.Transfer(context.Background(), ledger.Transfer{Asset: ledger.LP, From: depositor, To: ledger.LPVault, Amount: 5})
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)
}
