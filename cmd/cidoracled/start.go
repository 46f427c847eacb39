package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"
	tmlog "github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"

	"github.com/GPTx-global/cidoracle/app"
	"github.com/GPTx-global/cidoracle/oracle/client"
	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/oracle/daemon"
	"github.com/GPTx-global/cidoracle/oracle/health"
	"github.com/GPTx-global/cidoracle/oracle/monitor"
	"github.com/GPTx-global/cidoracle/server"
)

const healthInterval = 30 * time.Second

// StartCmd runs the oracle service: ledger, HTTP API, expiry monitor and,
// unless oracle.node_endpoint is set, an embedded oracle node.
func StartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the oracle service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			logger, closer, err := newLogger(cmd, home, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runService(ctx, logger, home, cfg)
		},
	}
}

func openApp(ctx context.Context, logger tmlog.Logger, home string, cfg *config.Config) (*app.App, error) {
	db, err := app.OpenDB(cfg.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a, err := app.New(logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if a.IsEmpty() {
		gs, err := app.ReadGenesisFile(home)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to read genesis, run init first: %w", err)
		}
		if err := a.InitGenesis(ctx, gs); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("initialized state from genesis", "height", a.LastHeight())
	}
	return a, nil
}

func runService(ctx context.Context, logger tmlog.Logger, home string, cfg *config.Config) error {
	a, err := openApp(ctx, logger, home, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sink, err := newMetrics()
	if err != nil {
		return err
	}

	checker := health.NewChecker(logger, healthInterval)
	checker.AddCheck(health.NewFuncCheck("ledger", func(ctx context.Context) error {
		return a.Query(ctx, func(sdk.Context) error { return nil })
	}))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Embedded() {
		signer, err := loadSigner(home, cfg)
		if err != nil {
			return err
		}
		d := daemon.NewFromConfig(logger, signer, a, daemonConfig(cfg))
		a.SetDispatcher(d)
		d.Start(gctx)
		defer d.Stop()
		logger.Info("embedded oracle node", "oracle", signer.Address().Hex(), "key_backend", cfg.Node.KeyBackend)
	} else {
		nc := client.NewNodeClient(cfg.Oracle.NodeEndpoint, nil)
		a.SetDispatcher(nc)
		checker.AddCheck(health.NewFuncCheck("oracle-node", nc.Health))
		logger.Info("remote oracle node", "endpoint", cfg.Oracle.NodeEndpoint)
	}

	srv := server.New(logger, a, serverConfig(cfg, cfg.Server.Listen), checker, sink)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return checker.Run(gctx) })

	if interval := cfg.Oracle.ExpiryInterval.Duration(); interval > 0 {
		mon := monitor.New(logger, a, interval)
		g.Go(func() error { return mon.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("oracle service stopped")
	return nil
}
