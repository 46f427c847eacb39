package main

import (
	"io"
	"os"
	"time"

	"github.com/armon/go-metrics"
	"github.com/spf13/cobra"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/app"
	keyclient "github.com/GPTx-global/cidoracle/client"
	"github.com/GPTx-global/cidoracle/crypto/keyring"
	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/oracle/daemon"
	"github.com/GPTx-global/cidoracle/oracle/log"
	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/oracle/scheduler"
	"github.com/GPTx-global/cidoracle/server"
	"github.com/GPTx-global/cidoracle/x/oracle/client/cli"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

const (
	FlagHome     = keyclient.FlagHome
	FlagLogLevel = "log_level"
)

// NewRootCmd creates the cidoracled command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cidoracled",
		Short:         "Content reference oracle service and node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(FlagHome, config.DefaultHome(), "The application home directory")
	rootCmd.PersistentFlags().String(FlagLogLevel, "", "Log level (debug|info|error), overrides config.toml")

	rootCmd.AddCommand(
		InitCmd(),
		StartCmd(),
		NodeCmd(),
		ExportCmd(),
		keyclient.KeyCommands(config.DefaultHome()),
		cli.GetTxCmd(),
		cli.GetQueryCmd(),
	)
	return rootCmd
}

func homeDir(cmd *cobra.Command) string {
	home, _ := cmd.Flags().GetString(FlagHome)
	if home == "" {
		return config.DefaultHome()
	}
	return home
}

// newLogger builds the process logger. The returned closer releases the log file, if any.
func newLogger(cmd *cobra.Command, home string, cfg *config.Config) (tmlog.Logger, io.Closer, error) {
	level := cfg.Log.Level
	if flagLevel, _ := cmd.Flags().GetString(FlagLogLevel); flagLevel != "" {
		level = flagLevel
	}
	if cfg.Log.File {
		logger, file, err := log.NewFile(home, level)
		if err != nil {
			return nil, nil, err
		}
		return logger, file, nil
	}
	logger, err := log.New(os.Stdout, level)
	if err != nil {
		return nil, nil, err
	}
	return logger, io.NopCloser(nil), nil
}

func newMetrics() (*metrics.InmemSink, error) {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := metrics.DefaultConfig(app.Name)
	cfg.EnableHostname = false
	if _, err := metrics.NewGlobal(cfg, sink); err != nil {
		return nil, err
	}
	return sink, nil
}

func daemonConfig(cfg *config.Config) daemon.Config {
	return daemon.Config{
		Scheduler: scheduler.Config{
			Workers:   cfg.Node.Workers,
			QueueSize: cfg.Node.QueueSize,
		},
		FetchTimeout: cfg.Node.FetchTimeout.Duration(),
		FetchRetry:   retry.DefaultConfig(),
		SubmitRetry:  retry.SubmitConfig(),
	}
}

func serverConfig(cfg *config.Config, listen string) server.Config {
	return server.Config{
		Listen:       listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}
}

// loadSigner returns the oracle node signer selected by node.key_backend.
func loadSigner(home string, cfg *config.Config) (oracletypes.Signer, error) {
	if keyring.IsKMSBackend(cfg.Node.KeyBackend) {
		client, err := keyring.NewKMSClient(cfg.KMSRegion())
		if err != nil {
			return nil, err
		}
		return keyring.NewKMSSigner(client, cfg.Node.KMSKeyID)
	}

	key, _, err := keyclient.LoadKey(home, "oracle", cfg.Node.KeyFile)
	if err != nil {
		return nil, err
	}
	return keyring.NewLocalSigner(key), nil
}
