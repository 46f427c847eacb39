package client

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/GPTx-global/cidoracle/crypto/keyring"
	"github.com/GPTx-global/cidoracle/oracle/keys"
)

const (
	FlagHome      = "home"
	FlagHDPath    = "hd-path"
	FlagRecover   = "recover"
	FlagKMSRegion = "kms-region"
)

// KeyFile returns the path of the named key under home.
func KeyFile(home, name string) string {
	return filepath.Join(home, "keys", name+".key")
}

// KeyCommands registers a sub-tree of commands to manage the owner and
// oracle signing keys stored under <home>/keys.
func KeyCommands(defaultHome string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the owner and oracle signing keys",
		Long: `Keys are secp256k1 private keys stored as hex under <home>/keys/<name>.key.
New keys are derived from a BIP-39 mnemonic at the first Ethereum account path.
The mnemonic is printed once and never stored.`,
	}

	cmd.AddCommand(
		AddKeyCommand(),
		ShowKeyCommand(),
		ImportKeyCommand(),
		KMSCreateCommand(),
		KMSShowCommand(),
	)

	cmd.PersistentFlags().String(FlagHome, defaultHome, "The application home directory")
	return cmd
}

// AddKeyCommand creates a key, or recovers one from a mnemonic read from stdin.
func AddKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new key, or recover one from a mnemonic with --recover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString(FlagHome)
			hdPath, _ := cmd.Flags().GetString(FlagHDPath)
			recoverKey, _ := cmd.Flags().GetBool(FlagRecover)

			var mnemonic string
			if recoverKey {
				fmt.Fprintln(cmd.ErrOrStderr(), "Enter your bip39 mnemonic")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("failed to read mnemonic: %w", err)
				}
				mnemonic = line
			} else {
				var err error
				if mnemonic, err = keys.NewMnemonic(); err != nil {
					return err
				}
			}

			key, err := keys.FromMnemonic(mnemonic, hdPath)
			if err != nil {
				return err
			}
			path := KeyFile(home, args[0])
			if err := keys.Save(path, key); err != nil {
				return err
			}

			printKey(cmd, args[0], key, path)
			if !recoverKey {
				fmt.Fprintf(cmd.OutOrStdout(), "\n**Important** write this mnemonic phrase in a safe place.\n\n%s\n", mnemonic)
			}
			return nil
		},
	}

	cmd.Flags().String(FlagHDPath, keys.DefaultHDPath, "HD derivation path")
	cmd.Flags().Bool(FlagRecover, false, "Recover the key from a mnemonic read from stdin")
	return cmd
}

// ShowKeyCommand prints the address of a stored key.
func ShowKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the address of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString(FlagHome)
			path := KeyFile(home, args[0])
			key, err := keys.Load(path)
			if err != nil {
				return err
			}
			printKey(cmd, args[0], key, path)
			return nil
		},
	}
}

// ImportKeyCommand stores a raw hex private key.
func ImportKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unsafe-import-hex <name> <hex-private-key>",
		Short: "**UNSAFE** Import a raw hex private key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString(FlagHome)
			key, err := keys.FromHex(args[1])
			if err != nil {
				return err
			}
			path := KeyFile(home, args[0])
			if err := keys.Save(path, key); err != nil {
				return err
			}
			printKey(cmd, args[0], key, path)
			return nil
		},
	}
}

// KMSCreateCommand creates a secp256k1 signing key in AWS KMS. The key id it
// prints goes into node.kms_key_id with node.key_backend = "kms-aws".
func KMSCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kms-create <name>",
		Short: "Create an oracle signing key in AWS KMS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := kmsClient(cmd)
			if err != nil {
				return err
			}
			keyID, err := keyring.CreateKMSKey(client, args[0])
			if err != nil {
				return err
			}
			signer, err := keyring.NewKMSSigner(client, keyID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "- name: %s\n  address: %s\n  kms_key_id: %s\n", args[0], signer.Address().Hex(), keyID)
			return nil
		},
	}
	cmd.Flags().String(FlagKMSRegion, "", "AWS region (default $AWS_REGION)")
	return cmd
}

// KMSShowCommand prints the address of an AWS KMS key.
func KMSShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kms-show <key-id>",
		Short: "Show the address of an AWS KMS signing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := kmsClient(cmd)
			if err != nil {
				return err
			}
			signer, err := keyring.NewKMSSigner(client, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "- kms_key_id: %s\n  address: %s\n", signer.KeyID(), signer.Address().Hex())
			return nil
		},
	}
	cmd.Flags().String(FlagKMSRegion, "", "AWS region (default $AWS_REGION)")
	return cmd
}

func kmsClient(cmd *cobra.Command) (*kms.KMS, error) {
	region, _ := cmd.Flags().GetString(FlagKMSRegion)
	if region == "" {
		region = os.Getenv(keyring.EnvAWSRegion)
	}
	return keyring.NewKMSClient(region)
}

// LoadKey reads the key at path, or the key named name under home when path is empty.
func LoadKey(home, name, path string) (*ecdsa.PrivateKey, common.Address, error) {
	if path == "" {
		path = KeyFile(home, name)
	}
	key, err := keys.Load(path)
	if err != nil {
		return nil, common.Address{}, err
	}
	return key, keys.Address(key), nil
}

func printKey(cmd *cobra.Command, name string, key *ecdsa.PrivateKey, path string) {
	fmt.Fprintf(cmd.OutOrStdout(), "- name: %s\n  address: %s\n  file: %s\n", name, keys.Address(key).Hex(), path)
}
