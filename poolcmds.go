package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/lpstaking/internal/lib/misc"
	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/position"
)

func GetPoolCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "pool",
		Aliases: []string{"p"},
		Usage:   "Create, inspect and administer the staking pool",
		Before:  initControllers,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize the pool - can only be done ONCE per pool id",
				Action: PoolInit,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "rate",
						Usage:    "Reward units accrued per second across the whole pool",
						Required: true,
					},
					&cli.UintFlag{
						Name:     "multiplier",
						Usage:    "Per position reward multiplier (scaled by 1000)",
						Required: true,
					},
				},
			},
			{
				Name:    "info",
				Aliases: []string{"i"},
				Usage:   "Display the pool state",
				Action:  PoolInfo,
			},
			{
				Name:   "refresh",
				Usage:  "Bring the pool reward accumulator up to date.  Normally done by the daemon",
				Action: PoolRefresh,
			},
			{
				Name:   "set-rate",
				Usage:  "[ADMIN] Change the pool reward rate",
				Action: PoolSetRate,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "rate",
						Usage:    "New reward rate",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Don't ask for confirmation",
					},
				},
			},
			{
				Name:   "set-multiplier",
				Usage:  "[ADMIN] Change the pool reward multiplier",
				Action: PoolSetMultiplier,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "multiplier",
						Usage:    "New reward multiplier",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Don't ask for confirmation",
					},
				},
			},
			{
				Name:    "positions",
				Aliases: []string{"l"},
				Usage:   "List every stake position in the pool",
				Action:  PoolPositions,
			},
			{
				Name:   "audit",
				Usage:  "Verify the pool total matches the sum of all positions",
				Action: PoolAudit,
			},
		},
	}
}

func PoolInit(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	p, err := App.controller.InitializePool(ctx, caller, cmd.Uint("rate"), cmd.Uint("multiplier"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPool(App.out, p, App.cfg.Decimals)
	return nil
}

func PoolInfo(ctx context.Context, cmd *cli.Command) error {
	p, err := App.controller.Pool(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPool(App.out, p, App.cfg.Decimals)
	return nil
}

func PoolRefresh(ctx context.Context, cmd *cli.Command) error {
	p, err := App.controller.RefreshPool(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPool(App.out, p, App.cfg.Decimals)
	return nil
}

func PoolSetRate(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	rate := cmd.Uint("rate")
	if !cmd.Bool("yes") && !confirm(fmt.Sprintf("Change reward rate of pool %s to %d", App.cfg.PoolID, rate)) {
		return nil
	}
	p, err := App.controller.SetRewardRate(ctx, caller, rate)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPool(App.out, p, App.cfg.Decimals)
	return nil
}

func PoolSetMultiplier(ctx context.Context, cmd *cli.Command) error {
	caller, err := App.caller()
	if err != nil {
		return cli.Exit(err, 1)
	}
	multiplier := cmd.Uint("multiplier")
	if !cmd.Bool("yes") && !confirm(fmt.Sprintf("Change reward multiplier of pool %s to %d", App.cfg.PoolID, multiplier)) {
		return nil
	}
	p, err := App.controller.SetRewardMultiplier(ctx, caller, multiplier)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPool(App.out, p, App.cfg.Decimals)
	return nil
}

func PoolPositions(ctx context.Context, cmd *cli.Command) error {
	positions, err := App.controller.Positions(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	displayPositions(App.out, positions, App.cfg.Decimals, time.Now().Unix())
	return nil
}

func PoolAudit(ctx context.Context, cmd *cli.Command) error {
	if err := App.controller.Audit(ctx); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(App.out, "pool", App.cfg.PoolID, "balanced")
	return nil
}

func displayPool(out io.Writer, p *pool.Pool, decimals int32) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Pool:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Total Staked:\t%s\n", misc.FormattedAmount(p.TotalStaked, decimals))
	fmt.Fprintf(tw, "Reward Rate:\t%d\n", p.RewardRate)
	fmt.Fprintf(tw, "Reward Multiplier:\t%d\n", p.RewardMultiplier)
	fmt.Fprintf(tw, "Acc. Reward Per Share:\t%d\n", p.AccRewardPerShare)
	fmt.Fprintf(tw, "Last Update:\t%s\n", formatTime(p.LastUpdateTime))
	tw.Flush()
}

func displayPositions(out io.Writer, positions []*position.Position, decimals int32, now int64) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Owner\tState\tStaked\tReward Debt\tLast Stake\tLockup Ends\tLocked\t")
	for _, pos := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%v\t\n", pos.Owner, pos.State(),
			misc.FormattedAmount(pos.Amount, decimals), misc.FormattedAmount(pos.RewardDebt, decimals),
			formatTime(pos.LastStakeTime), formatTime(pos.LockupEndTime), pos.Locked(now))
	}
	tw.Flush()
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
