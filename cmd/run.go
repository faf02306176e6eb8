package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/tickerbot/internal/container"
	"github.com/crystaldolphin/tickerbot/internal/logging"
	"github.com/crystaldolphin/tickerbot/internal/persist"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Restore saved tickers and start polling Telegram",
	RunE:  runBot,
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return errors.Wrap(err, "set up logging")
	}
	defer closer.Close() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		slog.Error("run: invalid configuration", "err", err)
		return err
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Bot().Connect(); err != nil {
		return err
	}
	slog.Info("run: handlers added")

	// Restore before the scheduler starts: no event fires, so nothing is
	// saved until every record has been processed.
	records, err := c.Store().Load()
	if err != nil {
		slog.Error("run: cannot read saved jobs, starting empty", "path", c.Store().Path(), "err", err)
	}
	report := persist.RestoreAll(records, c.Queue(), c.Refs())
	slog.Info("run: restore finished",
		"restored", len(report.Restored), "skipped", report.Skipped, "failed", len(report.Failed))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Scheduler().Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Bot().Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		<-c.Scheduler().Stop().Done()
		slog.Info("run: scheduler stopped")
		return nil
	})

	fmt.Printf("%s tickerbot running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run: stopped with error", "err", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
