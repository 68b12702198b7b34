package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vectra/internal/daemon"
	"vectra/internal/logging"
)

// newServeCommand runs the daemon in the foreground, which is handy during
// development and under process supervisors.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the vectra daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := d.Start(runCtx); err != nil {
				return err
			}

			select {
			case <-runCtx.Done():
				return nil
			case err := <-waitDaemon(d):
				return err
			}
		},
	}
}

func waitDaemon(d *daemon.Daemon) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- d.Wait() }()
	return ch
}
