package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/GPTx-global/cidoracle/app"
	"github.com/GPTx-global/cidoracle/crypto/keyring"
	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/oracle/keys"
	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

const (
	FlagOverwrite   = "overwrite"
	FlagFunds       = "funds"
	FlagFee         = "fee"
	FlagResolverURL = "resolver-url"
	FlagRequestTTL  = "request-ttl"
)

// InitCmd writes config.toml, the owner and oracle keys, and genesis.json under home.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration, keys and genesis",
		Long: `Initialize the home directory: config.toml with defaults, the owner and oracle
signing keys (generated when missing), and a genesis.json that funds the oracle
module account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)

			genesisPath := filepath.Join(home, app.GenesisFileName)
			if _, err := os.Stat(genesisPath); err == nil && !overwrite {
				return fmt.Errorf("genesis.json file already exists: %v", genesisPath)
			}

			cfg, err := config.Load(home)
			if err != nil {
				return err
			}

			owner, err := loadOrCreateKey(cmd, "owner", cfg.Oracle.OwnerKeyFile)
			if err != nil {
				return err
			}
			oracleAddr, err := oracleAddress(cmd, home, cfg)
			if err != nil {
				return err
			}

			rawFunds, _ := cmd.Flags().GetString(FlagFunds)
			funds, err := types.ParseCoin(rawFunds)
			if err != nil {
				return err
			}

			gs := app.DefaultGenesis(keys.Address(owner), oracleAddr, funds)
			if err := applyParamFlags(cmd, &gs); err != nil {
				return err
			}
			if err := gs.Validate(); err != nil {
				return err
			}
			if err := app.WriteGenesisFile(home, gs); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n  owner:  %s\n  oracle: %s\n  module: %s funded with %s\n",
				home, keys.Address(owner).Hex(), oracleAddr.Hex(), oracletypes.ModuleAddress.Hex(), funds)
			return nil
		},
	}

	cmd.Flags().Bool(FlagOverwrite, false, "Overwrite an existing genesis.json")
	cmd.Flags().String(FlagFunds, "10000000ucid", "Initial balance of the oracle module account")
	cmd.Flags().String(FlagFee, "", "Fee paid to the oracle per request (default 100000ucid)")
	cmd.Flags().String(FlagResolverURL, "", "Resolver endpoint queried by the oracle node")
	cmd.Flags().Duration(FlagRequestTTL, 0, "Time a request may stay pending before it expires (default 1h)")
	return cmd
}

func loadOrCreateKey(cmd *cobra.Command, name, path string) (*ecdsa.PrivateKey, error) {
	key, mnemonic, err := keys.LoadOrCreate(path)
	if err != nil {
		return nil, err
	}
	if mnemonic != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s key %s\n\n**Important** write this mnemonic phrase in a safe place.\n\n%s\n\n",
			name, keys.Address(key).Hex(), mnemonic)
	}
	return key, nil
}

// oracleAddress creates the oracle key file if needed, or asks KMS for the
// address of the configured key.
func oracleAddress(cmd *cobra.Command, home string, cfg *config.Config) (common.Address, error) {
	if keyring.IsKMSBackend(cfg.Node.KeyBackend) {
		signer, err := loadSigner(home, cfg)
		if err != nil {
			return common.Address{}, err
		}
		return signer.Address(), nil
	}
	key, err := loadOrCreateKey(cmd, "oracle", cfg.Node.KeyFile)
	if err != nil {
		return common.Address{}, err
	}
	return keys.Address(key), nil
}

func applyParamFlags(cmd *cobra.Command, gs *app.GenesisState) error {
	params := &gs.Oracle.Params
	if raw, _ := cmd.Flags().GetString(FlagFee); raw != "" {
		fee, err := types.ParseCoin(raw)
		if err != nil {
			return err
		}
		params.Fee = fee
	}
	if url, _ := cmd.Flags().GetString(FlagResolverURL); url != "" {
		params.ResolverURL = url
	}
	if cmd.Flags().Changed(FlagRequestTTL) {
		params.RequestTTL, _ = cmd.Flags().GetDuration(FlagRequestTTL)
	}
	return nil
}
