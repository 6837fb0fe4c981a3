package algo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/TxnLab/lpstaking/internal/lib/ledger"
	"github.com/TxnLab/lpstaking/internal/lib/misc"
)

var ErrMissingAsset = errors.New("asset id not configured")

// AssetLedger moves the LP and reward tokens as ASA transfers.  Custody account names resolve to the
// configured vault addresses, every other account must be an Algorand address whose key is in the signer.
type AssetLedger struct {
	log        *slog.Logger
	algoClient *algod.Client
	signer     MultipleWalletSigner

	assets  map[ledger.Asset]uint64
	custody map[string]string
}

func NewAssetLedger(log *slog.Logger, algoClient *algod.Client, signer MultipleWalletSigner, cfg NetworkConfig) (*AssetLedger, error) {
	if cfg.LPAssetID == 0 || cfg.RewardAssetID == 0 {
		return nil, fmt.Errorf("lp asset:%d, reward asset:%d: %w", cfg.LPAssetID, cfg.RewardAssetID, ErrMissingAsset)
	}
	al := &AssetLedger{
		log:        log,
		algoClient: algoClient,
		signer:     signer,
		assets: map[ledger.Asset]uint64{
			ledger.LP:     cfg.LPAssetID,
			ledger.Reward: cfg.RewardAssetID,
		},
		custody: map[string]string{
			ledger.LPVault:      cfg.LPVault,
			ledger.RewardsVault: cfg.RewardsVault,
		},
	}
	for name, addr := range al.custody {
		if _, err := types.DecodeAddress(addr); err != nil {
			return nil, fmt.Errorf("custody account %s address %q: %w", name, addr, err)
		}
	}
	return al, nil
}

// Address returns the Algorand address for a ledger account name.
func (al *AssetLedger) Address(account string) (string, error) {
	if addr, found := al.custody[account]; found {
		return addr, nil
	}
	if _, err := types.DecodeAddress(account); err != nil {
		return "", fmt.Errorf("account %s: %w", account, ledger.ErrUnknownAccount)
	}
	return account, nil
}

func (al *AssetLedger) AssetID(asset ledger.Asset) (uint64, error) {
	id, found := al.assets[asset]
	if !found {
		return 0, fmt.Errorf("asset %s: %w", asset, ErrMissingAsset)
	}
	return id, nil
}

// Balance returns the on-chain holding of account.
func (al *AssetLedger) Balance(ctx context.Context, asset ledger.Asset, account string) (uint64, error) {
	assetID, err := al.AssetID(asset)
	if err != nil {
		return 0, err
	}
	addr, err := al.Address(account)
	if err != nil {
		return 0, err
	}
	return AssetBalance(ctx, al.algoClient, addr, assetID)
}

func (al *AssetLedger) Transfer(ctx context.Context, xfer ledger.Transfer) error {
	txn, err := al.buildTransfer(ctx, xfer)
	if err != nil {
		return err
	}
	from := txn.Sender.String()
	txid, signed, err := al.signer.SignWithAccount(ctx, txn, from)
	if err != nil {
		return fmt.Errorf("signing transfer of %s: %w", xfer, err)
	}
	resp, err := sendAndWait(ctx, al.log, al.algoClient, signed)
	if err != nil {
		return fmt.Errorf("transfer of %s, txid:%s: %w", xfer, txid, err)
	}
	misc.Infof(al.log, "transferred %s in txid:%s, round:%d", xfer, txid, resp.ConfirmedRound)
	return nil
}

func (al *AssetLedger) buildTransfer(ctx context.Context, xfer ledger.Transfer) (types.Transaction, error) {
	assetID, err := al.AssetID(xfer.Asset)
	if err != nil {
		return types.Transaction{}, err
	}
	from, err := al.Address(xfer.From)
	if err != nil {
		return types.Transaction{}, err
	}
	to, err := al.Address(xfer.To)
	if err != nil {
		return types.Transaction{}, err
	}
	if !al.signer.HasAccount(from) {
		return types.Transaction{}, fmt.Errorf("no signing key for %s (%s): %w", xfer.From, from, ledger.ErrUnknownAccount)
	}
	params, err := SuggestedParams(ctx, al.log, al.algoClient)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("suggested params: %w", err)
	}
	txn, err := transaction.MakeAssetTransferTxn(from, to, xfer.Amount, []byte("lpstaking"), params, "", assetID)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("building transfer of %s: %w", xfer, err)
	}
	return txn, nil
}
