package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/lpstaking/internal/lib/misc"
	"github.com/TxnLab/lpstaking/internal/lib/position"
)

func GetStakeCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "stake",
		Aliases: []string{"s"},
		Usage:   "Stake, unstake and claim rewards as the --as identity",
		Before:  initControllers,
		Commands: []*cli.Command{
			{
				Name:    "add",
				Aliases: []string{"a"},
				Usage:   "Stake LP tokens, (re)setting the lock-up of the whole position",
				Action:  StakeAdd,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "amount",
						Usage:    "Amount of LP tokens to stake, in whole token units (ie: 1.5)",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "lockup",
						Usage: "How long the position is locked for (ie: 72h)",
						Value: 0,
					},
				},
			},
			{
				Name:    "remove",
				Aliases: []string{"r"},
				Usage:   "Withdraw the entire staked amount once the lock-up has ended",
				Action:  StakeRemove,
			},
			{
				Name:    "claim",
				Aliases: []string{"c"},
				Usage:   "Claim rewards accrued since the last stake or claim",
				Action:  StakeClaim,
			},
			{
				Name:   "show",
				Usage:  "Display a position and its currently claimable rewards",
				Action: StakeShow,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Position owner - defaults to the --as identity",
					},
				},
			},
		},
	}
}

func StakeAdd(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	amount, err := misc.ParseAmount(cmd.String("amount"), App.cfg.Decimals)
	if err != nil {
		return cli.Exit(fmt.Errorf("invalid amount: %w", err), 1)
	}
	pos, err := App.controller.Stake(ctx, caller, amount, durationSecs(cmd.Duration("lockup")))
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPosition(App.out, pos, 0, App.cfg.Decimals)
	return nil
}

func StakeRemove(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	amount, err := App.controller.Unstake(ctx, caller)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(App.out, "unstaked %s\n", misc.FormattedAmount(amount, App.cfg.Decimals))
	return nil
}

func StakeClaim(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	rewards, err := App.controller.ClaimRewards(ctx, caller)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(App.out, "claimed %s rewards\n", misc.FormattedAmount(rewards, App.cfg.Decimals))
	return nil
}

func StakeShow(ctx context.Context, cmd *cli.Command) error {
	owner := cmd.String("owner")
	if owner == "" {
		caller, err := App.caller()
		if err != nil {
			return cli.Exit(err, 1)
		}
		owner = caller.ID
	}
	pos, err := App.controller.Position(ctx, owner)
	if err != nil {
		return cli.Exit(err, 1)
	}
	pending, err := App.controller.PendingRewards(ctx, owner)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPosition(App.out, pos, pending, App.cfg.Decimals)
	return nil
}

func displayPosition(out io.Writer, pos *position.Position, pending uint64, decimals int32) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Owner:\t%s\n", pos.Owner)
	fmt.Fprintf(tw, "State:\t%s\n", pos.State())
	fmt.Fprintf(tw, "Staked:\t%s\n", misc.FormattedAmount(pos.Amount, decimals))
	fmt.Fprintf(tw, "Reward Debt:\t%s\n", misc.FormattedAmount(pos.RewardDebt, decimals))
	fmt.Fprintf(tw, "Claimable:\t%s\n", misc.FormattedAmount(pending, decimals))
	fmt.Fprintf(tw, "Last Stake:\t%s\n", formatTime(pos.LastStakeTime))
	fmt.Fprintf(tw, "Lockup Ends:\t%s\n", formatTime(pos.LockupEndTime))
	tw.Flush()
}

// durationSecs converts a lockup given as a duration into whole seconds.
func durationSecs(d time.Duration) int64 {
	return int64(d / time.Second)
}
