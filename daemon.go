package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssgreg/repeat"
	"github.com/urfave/cli/v3"

	"github.com/TxnLab/lpstaking/internal/lib/algo"
	"github.com/TxnLab/lpstaking/internal/lib/misc"
	"github.com/TxnLab/lpstaking/internal/lib/staking"
)

func GetDaemonCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run the application as a daemon - periodically refreshing the pool and serving metrics",
		Before:  initControllers,
		Action:  runAsDaemon,
	}
}

func runAsDaemon(ctx context.Context, _ *cli.Command) error {
	var wg sync.WaitGroup

	if App.algoClient != nil {
		if vers, err := algo.GetVersionString(ctx, App.algoClient); err == nil {
			misc.Infof(App.logger, "algod version: %s", vers)
		}
	}

	// The signal handler and the daemon goroutines notify the main goroutine when to stop.  A daemon failure
	// (ie: metrics port already in use) also fails the command.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	errc := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)

	newDaemon(App.logger, App.controller, App.cfg).start(ctx, &wg, errc)

	var err error
	select {
	case sig := <-sigc:
		misc.Infof(App.logger, "exiting (%v)", sig) // wait for termination signal
	case err = <-errc:
		misc.Errorf(App.logger, "exiting, daemon failed: %v", err)
	}

	// Send cancellation signal to the goroutines.
	cancel()
	misc.Infof(App.logger, "waiting on background tasks..")
	wg.Wait()

	misc.Infof(App.logger, "exited")
	if err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

// Daemon batches accumulator refreshes so individual operations find the pool mostly up to date, and
// exposes the staking metrics.
type Daemon struct {
	logger      *slog.Logger
	controller  *staking.Controller
	interval    time.Duration
	metricsAddr string

	// embed mutex for locking state for members below the mutex
	sync.RWMutex
	lastRefresh time.Time
	lastErr     error
}

func newDaemon(logger *slog.Logger, controller *staking.Controller, cfg *DeploymentConfig) *Daemon {
	return &Daemon{
		logger:      logger,
		controller:  controller,
		interval:    time.Duration(cfg.RefreshInterval),
		metricsAddr: cfg.MetricsAddr,
	}
}

// start launches the daemon goroutines.  A goroutine that can't keep running reports why on errc.
func (d *Daemon) start(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	misc.Infof(d.logger, "Starting staking daemon for pool %s", d.controller.PoolID())

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Refresher(ctx)
	}()

	if d.metricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.serveMetrics(ctx); err != nil {
				errc <- err
			}
		}()
	}
}

// Refresher refreshes the pool accumulator and audits the pool every interval until ctx is done.
func (d *Daemon) Refresher(ctx context.Context) {
	defer d.logger.Info("Exiting Refresher")
	d.logger.Info("Starting Refresher")

	if err := d.waitForPool(ctx); err != nil {
		misc.Errorf(d.logger, "pool never became available: %v", err)
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) refresh(ctx context.Context) {
	p, err := d.controller.RefreshPool(ctx)
	if err == nil {
		misc.Debugf(d.logger, "refreshed %s", p)
		err = d.controller.Audit(ctx)
	}
	if err != nil {
		misc.Warnf(d.logger, "refresh of pool %s failed: %v", d.controller.PoolID(), err)
	}
	d.Lock()
	d.lastRefresh = time.Now()
	d.lastErr = err
	d.Unlock()
}

// waitForPool retries until the pool has been initialized - the daemon can be started first.
func (d *Daemon) waitForPool(ctx context.Context) error {
	return repeat.Repeat(
		repeat.Fn(func() error {
			if _, err := d.controller.Pool(ctx); err != nil {
				if errors.Is(err, staking.ErrPoolNotFound) {
					return repeat.HintTemporary(err)
				}
				return err
			}
			return nil
		}),
		repeat.StopOnSuccess(),
		repeat.FnOnError(func(err error) error {
			misc.Infof(d.logger, "waiting for pool %s, error:%v", d.controller.PoolID(), err)
			return err
		}),
		repeat.WithDelay(
			repeat.SetContext(ctx),
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: 1 * time.Second,
				MaxDelay:  max(d.interval, time.Second),
			}).Set(),
		),
	)
}

// Status returns when the last refresh ran and how it went.
func (d *Daemon) Status() (time.Time, error) {
	d.RLock()
	defer d.RUnlock()
	return d.lastRefresh, d.lastErr
}

func (d *Daemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		last, err := d.Status()
		switch {
		case last.IsZero():
			http.Error(w, "no refresh yet", http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			fmt.Fprintf(w, "last refresh %s\n", last.UTC().Format(time.RFC3339))
		}
	})
	return mux
}

func (d *Daemon) serveMetrics(ctx context.Context) error {
	srv := &http.Server{
		Addr:              d.metricsAddr,
		Handler:           d.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	misc.Infof(d.logger, "serving metrics on %s", d.metricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server on %s: %w", d.metricsAddr, err)
	}
	return nil
}
