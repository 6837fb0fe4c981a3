package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func GetConfigCmdOpts() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Create or display the deployment configuration",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a deployment configuration, starting from the current one (or defaults)",
				Action: ConfigInit,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "datadir", Usage: "Directory holding pool state, ledger and event history"},
					&cli.StringFlag{Name: "ledger", Usage: "Ledger to transfer through: local or algorand"},
					&cli.StringFlag{Name: "network", Usage: "Algorand network to use", Sources: cli.EnvVars("ALGO_NETWORK")},
					&cli.UintFlag{Name: "lp-asset", Usage: "ASA id of the LP token", Sources: cli.EnvVars("LPSTAKE_LP_ASSET")},
					&cli.UintFlag{Name: "reward-asset", Usage: "ASA id of the reward token", Sources: cli.EnvVars("LPSTAKE_REWARD_ASSET")},
					&cli.StringFlag{Name: "lp-vault", Usage: "Address of the LP custody account", Sources: cli.EnvVars("LPSTAKE_LP_VAULT")},
					&cli.StringFlag{Name: "rewards-vault", Usage: "Address of the reward custody account", Sources: cli.EnvVars("LPSTAKE_REWARDS_VAULT")},
					&cli.StringSliceFlag{Name: "admin", Usage: "Identity allowed to change pool parameters (repeatable)"},
					&cli.DurationFlag{Name: "transfer-timeout", Usage: "Maximum time a single transfer may take"},
					&cli.DurationFlag{Name: "refresh-interval", Usage: "How often the daemon refreshes the pool accumulator"},
					&cli.StringFlag{Name: "metrics", Usage: "Daemon metrics listen address"},
					&cli.IntFlag{Name: "decimals", Usage: "Token decimals used when displaying amounts", Value: -1},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Overwrite an existing configuration without asking"},
				},
			},
			{
				Name:   "show",
				Usage:  "Display the active configuration",
				Action: ConfigShow,
			},
		},
	}
}

func ConfigInit(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(App.cfgName); err == nil && !cmd.Bool("yes") {
		if !confirm(fmt.Sprintf("Configuration %s already exists, overwrite it", App.cfgName)) {
			return nil
		}
	}
	if err := applyConfigFlags(App.cfg, cmd); err != nil {
		return cli.Exit(err, 1)
	}
	if err := SaveConfig(App.cfgName, App.cfg); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

// applyConfigFlags copies every explicitly set flag onto cfg.
func applyConfigFlags(cfg *DeploymentConfig, cmd *cli.Command) error {
	if cmd.IsSet("datadir") {
		cfg.DataDir = cmd.String("datadir")
	}
	if cmd.IsSet("ledger") {
		cfg.Ledger = cmd.String("ledger")
	}
	if cmd.IsSet("network") {
		cfg.Network = cmd.String("network")
	}
	if cmd.IsSet("lp-asset") {
		cfg.LPAssetID = cmd.Uint("lp-asset")
	}
	if cmd.IsSet("reward-asset") {
		cfg.RewardAssetID = cmd.Uint("reward-asset")
	}
	if cmd.IsSet("lp-vault") {
		cfg.LPVault = cmd.String("lp-vault")
	}
	if cmd.IsSet("rewards-vault") {
		cfg.RewardsVault = cmd.String("rewards-vault")
	}
	if cmd.IsSet("admin") {
		cfg.Admins = cmd.StringSlice("admin")
	}
	if cmd.IsSet("transfer-timeout") {
		cfg.TransferTimeout = Duration(cmd.Duration("transfer-timeout"))
	}
	if cmd.IsSet("refresh-interval") {
		cfg.RefreshInterval = Duration(cmd.Duration("refresh-interval"))
	}
	if cmd.IsSet("metrics") {
		cfg.MetricsAddr = cmd.String("metrics")
	}
	if decimals := cmd.Int("decimals"); decimals >= 0 {
		cfg.Decimals = int32(decimals)
	}
	return cfg.Validate()
}

func ConfigShow(ctx context.Context, cmd *cli.Command) error {
	fmt.Fprintln(App.out, "# file:", App.cfgName)
	enc := yaml.NewEncoder(App.out)
	defer enc.Close()
	return enc.Encode(App.cfg)
}

// confirm asks a yes/no question, treating anything but an explicit yes as no.
func confirm(prompt string) bool {
	_, err := (&promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}).Run()
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		App.logger.Debug("prompt failed", "error", err)
	}
	return err == nil
}
