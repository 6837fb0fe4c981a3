package algo

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TxnLab/lpstaking/internal/lib/misc"
)

type NetworkConfig struct {
	NodeDataDir string

	NodeURL     string
	NodeToken   string
	NodeHeaders map[string]string

	// ASA ids standing in for the LP and reward tokens
	LPAssetID     uint64
	RewardAssetID uint64

	// Algorand addresses of the custody accounts
	LPVault      string
	RewardsVault string
}

func (n NetworkConfig) String() string {
	return fmt.Sprintf("NodeDataDir: %s, NodeURL: %s, NodeToken: (length:%d), NodeHeaders: %v, LPAssetID: %d, RewardAssetID: %d, LPVault: %s, RewardsVault: %s",
		n.NodeDataDir, n.NodeURL, len(n.NodeToken), n.NodeHeaders, n.LPAssetID, n.RewardAssetID, n.LPVault, n.RewardsVault)
}

func GetNetworkConfig(network string) NetworkConfig {
	cfg := getDefaults(network)

	if nodeDataDir := os.Getenv("ALGORAND_DATA"); nodeDataDir != "" {
		cfg.NodeDataDir = nodeDataDir
	}
	setUintFromEnv(&cfg.LPAssetID, "LPSTAKE_LP_ASSET")
	setUintFromEnv(&cfg.RewardAssetID, "LPSTAKE_REWARD_ASSET")
	if vault := os.Getenv("LPSTAKE_LP_VAULT"); vault != "" {
		cfg.LPVault = vault
	}
	if vault := os.Getenv("LPSTAKE_REWARDS_VAULT"); vault != "" {
		cfg.RewardsVault = vault
	}

	if nodeURL := misc.GetSecret("ALGO_ALGOD_URL"); nodeURL != "" {
		cfg.NodeURL = nodeURL
	}
	if nodeToken := misc.GetSecret("ALGO_ALGOD_TOKEN"); nodeToken != "" {
		cfg.NodeToken = nodeToken
	}
	cfg.NodeHeaders = parseHeaders(misc.GetSecret("ALGO_ALGOD_HEADERS"))
	return cfg
}

// parseHeaders parses key:value[,key:value...] pairs.  Only the first : splits, values can contain them.
func parseHeaders(headers string) map[string]string {
	parsed := map[string]string{}
	for _, header := range strings.Split(headers, ",") {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return parsed
}

func setUintFromEnv(val *uint64, envName string) {
	if strVal := os.Getenv(envName); strVal != "" {
		if intVal, err := strconv.ParseUint(strVal, 10, 64); err == nil {
			*val = intVal
		}
	}
}

func getDefaults(network string) NetworkConfig {
	cfg := NetworkConfig{}
	switch network {
	case "mainnet":
		cfg.NodeURL = "https://mainnet-api.algonode.cloud"
	case "testnet":
		cfg.NodeURL = "https://testnet-api.algonode.cloud"
	case "betanet":
		cfg.NodeURL = "https://betanet-api.algonode.cloud"
	case "sandbox":
		// asset ids and vaults should come from .env.sandbox
		cfg.NodeURL = "http://localhost:4001"
		cfg.NodeToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	//-----
	// VOI
	//-----
	case "voitestnet":
		cfg.NodeURL = "https://testnet-api.voi.nodely.io"
	}
	return cfg
}

// GetNetAndTokenFromFiles reads the address and token from files in the local Algorand data directory.
func GetNetAndTokenFromFiles(netFile, tokenFile string) (string, string, error) {
	netPath, err := os.ReadFile(netFile)
	if err != nil {
		return "", "", fmt.Errorf("error reading file: %s: %w", netFile, err)
	}
	apiKeyBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return "", "", fmt.Errorf("error reading file: %s: %w", tokenFile, err)
	}
	apiURL := fmt.Sprintf("http://%s", strings.TrimSpace(string(netPath)))
	apiToken := strings.TrimSpace(string(apiKeyBytes))
	return apiURL, apiToken, nil
}
