package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/staking"
	"github.com/TxnLab/lpstaking/internal/lib/store"
)

const (
	LedgerLocal    = "local"
	LedgerAlgorand = "algorand"
)

// Duration is a time.Duration stored as its string form ("30s") in the config file.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DeploymentConfig is the persisted configuration of a staking deployment.
type DeploymentConfig struct {
	PoolID  string `json:"poolId" yaml:"poolId"`
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Ledger is one of local (file backed balances) or algorand (ASA transfers)
	Ledger  string `json:"ledger" yaml:"ledger"`
	Network string `json:"network,omitempty" yaml:"network,omitempty"`

	LPAssetID     uint64 `json:"lpAssetId,omitempty" yaml:"lpAssetId,omitempty"`
	RewardAssetID uint64 `json:"rewardAssetId,omitempty" yaml:"rewardAssetId,omitempty"`
	LPVault       string `json:"lpVault,omitempty" yaml:"lpVault,omitempty"`
	RewardsVault  string `json:"rewardsVault,omitempty" yaml:"rewardsVault,omitempty"`

	// Identities allowed to change pool parameters
	Admins []string `json:"admins" yaml:"admins"`

	TransferTimeout Duration `json:"transferTimeout" yaml:"transferTimeout"`
	RefreshInterval Duration `json:"refreshInterval" yaml:"refreshInterval"`
	MetricsAddr     string   `json:"metricsAddr" yaml:"metricsAddr"`
	EventDB         string   `json:"eventDb,omitempty" yaml:"eventDb,omitempty"`
	// Decimals of the LP and reward tokens, for display only
	Decimals int32 `json:"decimals" yaml:"decimals"`
}

func DefaultConfig() *DeploymentConfig {
	dataDir := "lpstaking-data"
	if cfgDir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(cfgDir, "lpstaking", "data")
	}
	return &DeploymentConfig{
		PoolID:          pool.DefaultID,
		DataDir:         dataDir,
		Ledger:          LedgerLocal,
		Network:         "mainnet",
		TransferTimeout: Duration(staking.DefaultTransferTimeout),
		RefreshInterval: Duration(time.Minute),
		MetricsAddr:     ":8080",
	}
}

func ConfigFilename() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	cfgPath := filepath.Join(cfgDir, "lpstaking", "lpstaking.json")
	err = os.MkdirAll(filepath.Dir(cfgPath), 0775) // user+group RWX, others RX
	if err != nil {
		return "", fmt.Errorf("error making directory:%s, error:%w", cfgDir, err)
	}
	return cfgPath, nil
}

func isYAML(cfgName string) bool {
	ext := strings.ToLower(filepath.Ext(cfgName))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig reads the config file, filling anything left unset from DefaultConfig.
func LoadConfig(cfgName string) (*DeploymentConfig, error) {
	data, err := os.ReadFile(cfgName)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(cfgName) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing configuration %s: %w", cfgName, err)
	}
	return cfg, cfg.Validate()
}

// SaveConfig saves into a temp file first, replacing the config file only if successfully written.
func SaveConfig(cfgName string, cfg *DeploymentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(cfgName) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	temp, err := os.CreateTemp(filepath.Dir(cfgName), filepath.Base(cfgName)+".*")
	if err != nil {
		return err
	}
	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving configuration: %w", err)
	}
	if err = temp.Close(); err != nil {
		return err
	}
	if err = os.Rename(temp.Name(), cfgName); err != nil {
		return err
	}
	slog.Info("configuration saved", "file", cfgName)
	return nil
}

func (c *DeploymentConfig) Validate() error {
	if c.PoolID == "" {
		return errors.New("pool id can't be empty")
	}
	if err := store.CheckPoolID(c.PoolID); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("data directory can't be empty")
	}
	switch c.Ledger {
	case LedgerLocal:
	case LedgerAlgorand:
		if c.LPAssetID == 0 || c.RewardAssetID == 0 {
			return errors.New("algorand ledger requires both lp and reward asset ids")
		}
		if c.LPVault == "" || c.RewardsVault == "" {
			return errors.New("algorand ledger requires both custody vault addresses")
		}
	default:
		return fmt.Errorf("unknown ledger kind:%s", c.Ledger)
	}
	if c.TransferTimeout <= 0 {
		return errors.New("transfer timeout must be positive")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if c.Decimals < 0 || c.Decimals > 19 {
		return fmt.Errorf("decimals of %d out of range", c.Decimals)
	}
	return nil
}

func (c *DeploymentConfig) IsAdmin(id string) bool {
	return slices.Contains(c.Admins, id)
}

func (c *DeploymentConfig) StorePath() string {
	return filepath.Join(c.DataDir, "state")
}

func (c *DeploymentConfig) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.json")
}

func (c *DeploymentConfig) EventDBPath() string {
	if c.EventDB != "" {
		return c.EventDB
	}
	return filepath.Join(c.DataDir, "events.db")
}
