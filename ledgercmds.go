package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/lpstaking/internal/lib/algo"
	"github.com/TxnLab/lpstaking/internal/lib/ledger"
	"github.com/TxnLab/lpstaking/internal/lib/misc"
)

var errLocalLedgerOnly = errors.New("only supported with the local ledger")

func accountFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "asset",
			Usage: "lp or reward",
			Value: string(ledger.LP),
		},
		&cli.StringFlag{
			Name:  "account",
			Usage: "Account to use - defaults to the --as identity.  lp_vault and rewards_vault name the custody accounts",
		},
	}
}

func GetLedgerCmdOpts() *cli.Command {
	return &cli.Command{
		Name:   "ledger",
		Usage:  "Inspect balances of the ledger transfers go through",
		Before: initControllers,
		Commands: []*cli.Command{
			{
				Name:   "balance",
				Usage:  "Display the balance of an account",
				Action: LedgerBalance,
				Flags:  accountFlags(),
			},
			{
				Name:   "mint",
				Usage:  "[LOCAL LEDGER] Credit an account, ie: to fund depositors or the rewards vault",
				Action: LedgerMint,
				Flags: append(accountFlags(), &cli.StringFlag{
					Name:     "amount",
					Usage:    "Amount to credit, in whole token units",
					Required: true,
				}),
			},
		},
	}
}

func ledgerArgs(cmd *cli.Command) (ledger.Asset, string, error) {
	asset := ledger.Asset(cmd.String("asset"))
	if asset != ledger.LP && asset != ledger.Reward {
		return "", "", fmt.Errorf("unknown asset:%s", asset)
	}
	account := cmd.String("account")
	if account == "" {
		caller, err := App.caller()
		if err != nil {
			return "", "", err
		}
		account = caller.ID
	}
	return asset, account, nil
}

func LedgerBalance(ctx context.Context, cmd *cli.Command) error {
	asset, account, err := ledgerArgs(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	var balance uint64
	switch l := App.ledger.(type) {
	case *ledger.FileLedger:
		balance = l.Balance(asset, account)
	case *algo.AssetLedger:
		if balance, err = l.Balance(ctx, asset, account); err != nil {
			return cli.Exit(err, 1)
		}
	default:
		return cli.Exit(fmt.Errorf("ledger %T can't report balances", App.ledger), 1)
	}
	fmt.Fprintf(App.out, "%s %s: %s\n", account, asset, misc.FormattedAmount(balance, App.cfg.Decimals))
	return nil
}

func LedgerMint(ctx context.Context, cmd *cli.Command) error {
	fl, ok := App.ledger.(*ledger.FileLedger)
	if !ok {
		return cli.Exit(errLocalLedgerOnly, 1)
	}
	asset, account, err := ledgerArgs(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	amount, err := misc.ParseAmount(cmd.String("amount"), App.cfg.Decimals)
	if err != nil {
		return cli.Exit(fmt.Errorf("invalid amount: %w", err), 1)
	}
	if err = fl.Mint(asset, account, amount); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(App.out, "%s %s: %s\n", account, asset, misc.FormattedAmount(fl.Balance(asset, account), App.cfg.Decimals))
	return nil
}
