/*
 * Copyright (c) 2022. TxnLab Inc.
 * All Rights reserved.
 */

package algo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/ed25519"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/TxnLab/lpstaking/internal/lib/misc"
)

// mnemonicPrefixes are the env var prefixes mnemonics are loaded from (ALGO_MNEMONIC_1, LPSTAKE_MNEMONIC_VAULT, ...)
var mnemonicPrefixes = []string{"ALGO_MNEMONIC", "LPSTAKE_MNEMONIC"}

// LocalKeyStore signs with private keys held in process memory.
type LocalKeyStore struct {
	log *slog.Logger

	sync.RWMutex
	keys map[string]ed25519.PrivateKey
}

// NewLocalKeyStore returns a key store holding every mnemonic found in the environment.
func NewLocalKeyStore(log *slog.Logger) (*LocalKeyStore, error) {
	keyStore := &LocalKeyStore{
		log:  log,
		keys: map[string]ed25519.PrivateKey{},
	}
	if err := keyStore.loadFromEnvironment(); err != nil {
		return nil, err
	}
	return keyStore, nil
}

func (lk *LocalKeyStore) HasAccount(publicAddress string) bool {
	lk.RLock()
	defer lk.RUnlock()
	_, found := lk.keys[publicAddress]
	return found
}

// Accounts returns the addresses of every loaded key, sorted.
func (lk *LocalKeyStore) Accounts() []string {
	lk.RLock()
	defer lk.RUnlock()
	accounts := make([]string, 0, len(lk.keys))
	for addr := range lk.keys {
		accounts = append(accounts, addr)
	}
	sort.Strings(accounts)
	return accounts
}

func (lk *LocalKeyStore) SignWithAccount(ctx context.Context, tx types.Transaction, publicAddress string) (string, []byte, error) {
	lk.RLock()
	key, found := lk.keys[publicAddress]
	lk.RUnlock()
	if !found {
		return "", nil, fmt.Errorf("key not found for address %s", publicAddress)
	}
	return crypto.SignTransaction(key, tx)
}

// loadFromEnvironment loads mnemonics from environment variables (can be in .env files as well) starting with
// one of the mnemonic prefixes.
func (lk *LocalKeyStore) loadFromEnvironment() error {
	var numMnemonics int
	for _, envVal := range os.Environ() {
		if !hasMnemonicPrefix(envVal) {
			continue
		}
		key := envVal[0:strings.IndexByte(envVal, '=')]
		envMnemonic := os.Getenv(key)
		if envMnemonic == "" {
			continue
		}
		if _, err := lk.AddMnemonic(envMnemonic); err != nil {
			return fmt.Errorf("mnemonic load from %s: %w", key, err)
		}
		numMnemonics++
	}
	misc.Infof(lk.log, "loaded %d mnemonics", numMnemonics)
	return nil
}

// AddMnemonic adds the key for mnemonicPhrase, returning its address.
func (lk *LocalKeyStore) AddMnemonic(mnemonicPhrase string) (string, error) {
	key, err := mnemonic.ToPrivateKey(mnemonicPhrase)
	if err != nil {
		return "", fmt.Errorf("failed to add mnemonic: %w", err)
	}
	account, err := crypto.AccountFromPrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to add mnemonic: %w", err)
	}
	lk.Lock()
	lk.keys[account.Address.String()] = key
	lk.Unlock()
	misc.Debugf(lk.log, "Added data for pk:%s", account.Address.String())
	return account.Address.String(), nil
}

func hasMnemonicPrefix(envVal string) bool {
	for _, prefix := range mnemonicPrefixes {
		if strings.HasPrefix(envVal, prefix) {
			return true
		}
	}
	return false
}
