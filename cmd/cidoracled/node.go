package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	tmlog "github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"

	"github.com/GPTx-global/cidoracle/oracle/client"
	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/oracle/daemon"
	"github.com/GPTx-global/cidoracle/oracle/health"
	"github.com/GPTx-global/cidoracle/server"
)

// NodeCmd runs a standalone oracle node that accepts jobs from a remote
// service and delivers fulfillments back to it.
func NodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "Run a standalone oracle node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			if err := cfg.ValidateNode(); err != nil {
				return err
			}
			logger, closer, err := newLogger(cmd, home, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runNode(ctx, logger, home, cfg)
		},
	}
}

func runNode(ctx context.Context, logger tmlog.Logger, home string, cfg *config.Config) error {
	signer, err := loadSigner(home, cfg)
	if err != nil {
		return err
	}
	sink, err := newMetrics()
	if err != nil {
		return err
	}

	core := client.NewCoreClient(cfg.Node.CoreEndpoint, nil)
	checker := health.NewChecker(logger, healthInterval)
	checker.AddCheck(health.NewFuncCheck("core", core.Health))

	g, gctx := errgroup.WithContext(ctx)

	dcfg := daemonConfig(cfg)
	dcfg.Verifier = core
	d := daemon.NewFromConfig(logger, signer, core, dcfg)
	d.Start(gctx)
	defer d.Stop()
	logger.Info("oracle node", "oracle", signer.Address().Hex(), "key_backend", cfg.Node.KeyBackend, "core", cfg.Node.CoreEndpoint)

	ns := server.NewNodeServer(logger, serverConfig(cfg, cfg.Node.Listen), d, checker, sink)
	g.Go(func() error { return ns.Start(gctx) })
	g.Go(func() error { return checker.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
