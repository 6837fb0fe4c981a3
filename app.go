package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/TxnLab/lpstaking/internal/lib/algo"
	"github.com/TxnLab/lpstaking/internal/lib/events"
	"github.com/TxnLab/lpstaking/internal/lib/ledger"
	"github.com/TxnLab/lpstaking/internal/lib/misc"
	"github.com/TxnLab/lpstaking/internal/lib/staking"
	"github.com/TxnLab/lpstaking/internal/lib/store"
)

var logLevel = new(slog.LevelVar) // Info by default

func initApp() *StakingApp {
	log.SetFlags(0)
	// Are we running on something where output is a tty - so we're being run as CLI vs as a daemon
	logger := misc.NewLogger(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), logLevel)
	slog.SetDefault(logger)
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}

	misc.LoadEnvSettings(logger)

	// We initialize our wrapper instance first, so we can call its methods in the 'Before' lambda func
	// in initialization of cli App instance.
	appConfig := &StakingApp{logger: logger, out: os.Stdout}

	appConfig.cliCmd = &cli.Command{
		Name:    "lpstaking",
		Usage:   "Staking pool manager - stake LP tokens, accrue and claim rewards",
		Version: misc.GetVersionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			return appConfig.initConfig(ctx, cmd)
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			return appConfig.close()
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("LPSTAKE_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Deployment configuration file (.json or .yaml).  Defaults to lpstaking.json in the user config dir",
				Sources: cli.EnvVars("LPSTAKE_CONFIG"),
				Aliases: []string{"c"},
			},
			&cli.StringFlag{
				Name:    "as",
				Usage:   "Identity to act as - a depositor name (local ledger) or Algorand address",
				Sources: cli.EnvVars("LPSTAKE_IDENTITY"),
			},
			&cli.StringFlag{
				Name:    "pool",
				Usage:   "Override the pool id from the configuration",
				Sources: cli.EnvVars("LPSTAKE_POOL"),
			},
		},
		Commands: []*cli.Command{
			GetConfigCmdOpts(),
			GetPoolCmdOpts(),
			GetStakeCmdOpts(),
			GetLedgerCmdOpts(),
			GetEventsCmdOpts(),
			GetDaemonCmdOpts(),
		},
	}
	return appConfig
}

type StakingApp struct {
	cliCmd *cli.Command
	logger *slog.Logger
	out    io.Writer

	cfgName string
	cfg     *DeploymentConfig

	// set up lazily by initControllers, only for commands that need them
	db         *store.DB
	ledger     ledger.Ledger
	algoClient *algod.Client
	eventDB    *events.SQLSink
	controller *staking.Controller
	identity   string
}

// initConfig loads env files and the deployment configuration.  A missing config file isn't an error
// here (defaults apply) so 'config init' can create it.
func (ac *StakingApp) initConfig(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("envfile"); envfile != "" {
		if err := loadNamedEnvFile(ac.logger, envfile); err != nil {
			return err
		}
	}
	ac.cfgName = cmd.String("config")
	if ac.cfgName == "" {
		var err error
		if ac.cfgName, err = ConfigFilename(); err != nil {
			return err
		}
	}
	cfg, err := LoadConfig(ac.cfgName)
	switch {
	case errors.Is(err, os.ErrNotExist):
		misc.Debugf(ac.logger, "no configuration at %s, using defaults", ac.cfgName)
		cfg = DefaultConfig()
	case err != nil:
		return err
	}
	if poolID := cmd.String("pool"); poolID != "" {
		cfg.PoolID = poolID
	}
	ac.cfg = cfg
	ac.identity = cmd.String("as")
	return nil
}

func initControllers(ctx context.Context, cmd *cli.Command) error {
	return App.initControllers(ctx, cmd)
}

// initControllers opens the store, ledger and event sinks and builds the staking controller.
func (ac *StakingApp) initControllers(ctx context.Context, _ *cli.Command) error {
	if ac.controller != nil {
		return nil
	}
	var err error
	if err = os.MkdirAll(ac.cfg.DataDir, 0775); err != nil {
		return fmt.Errorf("error making data directory:%s, error:%w", ac.cfg.DataDir, err)
	}
	if ac.ledger, err = ac.initLedger(); err != nil {
		return err
	}
	if ac.db, err = store.Open(ac.cfg.StorePath()); err != nil {
		return err
	}
	if ac.eventDB, err = events.NewSQLSink(ac.cfg.EventDBPath()); err != nil {
		return err
	}
	misc.Debugf(ac.logger, "event db %s, sqlite %s", ac.eventDB.Path(), ac.eventDB.SQLiteVersion())

	ac.controller, err = staking.New(staking.Config{
		PoolID:          ac.cfg.PoolID,
		DB:              ac.db,
		Ledger:          ac.ledger,
		Clock:           staking.SystemClock,
		Emitter:         events.NewEmitter(ac.logger, events.LogSink{Logger: ac.logger}, ac.eventDB),
		Logger:          ac.logger,
		TransferTimeout: time.Duration(ac.cfg.TransferTimeout),
	})
	return err
}

func (ac *StakingApp) initLedger() (ledger.Ledger, error) {
	switch ac.cfg.Ledger {
	case LedgerLocal:
		return ledger.OpenFileLedger(ac.cfg.LedgerPath())
	case LedgerAlgorand:
		network := ac.cfg.Network
		switch network {
		case "sandbox", "betanet", "testnet", "mainnet", "voitestnet":
		default:
			return nil, fmt.Errorf("unknown network:%s", network)
		}
		// Now load .env.{network} overrides -ie: .env.sandbox containing generated mnemonics
		misc.LoadEnvForNetwork(ac.logger, network)

		netCfg := algo.GetNetworkConfig(network)
		// the deployment config wins over network defaults
		netCfg.LPAssetID = ac.cfg.LPAssetID
		netCfg.RewardAssetID = ac.cfg.RewardAssetID
		netCfg.LPVault = ac.cfg.LPVault
		netCfg.RewardsVault = ac.cfg.RewardsVault

		algoClient, err := algo.GetAlgoClient(ac.logger, netCfg)
		if err != nil {
			return nil, err
		}
		ac.algoClient = algoClient
		// This will load and initialize mnemonics from the environment - and handles all 'local' signing for the app
		signer, err := algo.NewLocalKeyStore(ac.logger)
		if err != nil {
			return nil, err
		}
		return algo.NewAssetLedger(ac.logger, algoClient, signer, netCfg)
	}
	return nil, fmt.Errorf("unknown ledger kind:%s", ac.cfg.Ledger)
}

// caller returns the acting identity, with admin capability if it's a configured administrator.
func (ac *StakingApp) caller() (staking.Caller, error) {
	if ac.identity == "" {
		return staking.Caller{}, errors.New("an identity is required, use --as or LPSTAKE_IDENTITY")
	}
	return staking.Caller{ID: ac.identity, Admin: ac.cfg.IsAdmin(ac.identity)}, nil
}

func (ac *StakingApp) close() error {
	var errs []error
	if ac.eventDB != nil {
		errs = append(errs, ac.eventDB.Close())
	}
	if ac.db != nil {
		errs = append(errs, ac.db.Close())
	}
	return errors.Join(errs...)
}

func loadNamedEnvFile(logger *slog.Logger, envFile string) error {
	misc.Infof(logger, "loading env file:%s", envFile)
	return godotenv.Load(envFile)
}
