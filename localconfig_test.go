package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func algorandConfig(dir string) *DeploymentConfig {
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Ledger = LedgerAlgorand
	cfg.Network = "testnet"
	cfg.LPAssetID = 1001
	cfg.RewardAssetID = 1002
	cfg.LPVault = "LPVAULT"
	cfg.RewardsVault = "REWARDSVAULT"
	cfg.Admins = []string{"admin"}
	cfg.TransferTimeout = Duration(5 * time.Second)
	cfg.Decimals = 6
	return cfg
}

func TestSaveLoadConfig(t *testing.T) {
	for _, name := range []string{"lpstaking.json", "lpstaking.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfgName := filepath.Join(dir, name)
			cfg := algorandConfig(dir)
			require.NoError(t, SaveConfig(cfgName, cfg))

			loaded, err := LoadConfig(cfgName)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)

			// no temp files left behind
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfgName := filepath.Join(t.TempDir(), "lpstaking.yml")
	require.NoError(t, os.WriteFile(cfgName, []byte("poolId: other\ntransferTimeout: 2m\n"), 0o644))

	cfg, err := LoadConfig(cfgName)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.PoolID)
	assert.Equal(t, Duration(2*time.Minute), cfg.TransferTimeout)
	assert.Equal(t, LedgerLocal, cfg.Ledger)
	assert.Equal(t, Duration(time.Minute), cfg.RefreshInterval)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"transferTimeout": "soon"}`), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "error parsing configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *DeploymentConfig)
		errMsg string
	}{
		{"valid", func(cfg *DeploymentConfig) {}, ""},
		{"local needs no assets", func(cfg *DeploymentConfig) { cfg.Ledger, cfg.LPAssetID = LedgerLocal, 0 }, ""},
		{"empty pool", func(cfg *DeploymentConfig) { cfg.PoolID = "" }, "pool id"},
		{"pool id too long", func(cfg *DeploymentConfig) { cfg.PoolID = strings.Repeat("p", 1<<16) }, "invalid pool id"},
		{"empty datadir", func(cfg *DeploymentConfig) { cfg.DataDir = "" }, "data directory"},
		{"unknown ledger", func(cfg *DeploymentConfig) { cfg.Ledger = "paper" }, "unknown ledger"},
		{"missing asset", func(cfg *DeploymentConfig) { cfg.RewardAssetID = 0 }, "asset ids"},
		{"missing vault", func(cfg *DeploymentConfig) { cfg.LPVault = "" }, "vault"},
		{"zero timeout", func(cfg *DeploymentConfig) { cfg.TransferTimeout = 0 }, "transfer timeout"},
		{"zero interval", func(cfg *DeploymentConfig) { cfg.RefreshInterval = 0 }, "refresh interval"},
		{"decimals", func(cfg *DeploymentConfig) { cfg.Decimals = 20 }, "decimals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := algorandConfig(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.errMsg)
			}
		})
	}
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cfg := algorandConfig(dir)
	cfg.Ledger = "paper"
	assert.Error(t, SaveConfig(filepath.Join(dir, "lpstaking.json"), cfg))
	_, err := os.Stat(filepath.Join(dir, "lpstaking.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigHelpers(t *testing.T) {
	cfg := algorandConfig("/var/lpstaking")
	assert.True(t, cfg.IsAdmin("admin"))
	assert.False(t, cfg.IsAdmin("alice"))
	assert.Equal(t, filepath.Join("/var/lpstaking", "state"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/var/lpstaking", "ledger.json"), cfg.LedgerPath())
	assert.Equal(t, filepath.Join("/var/lpstaking", "events.db"), cfg.EventDBPath())
	cfg.EventDB = "/tmp/ev.db"
	assert.Equal(t, "/tmp/ev.db", cfg.EventDBPath())
}

func TestDuration(t *testing.T) {
	text, err := Duration(90 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, Duration(250*time.Millisecond), d)
	assert.Error(t, d.UnmarshalText([]byte("10")))
}
