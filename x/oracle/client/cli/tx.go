package cli

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	keyclient "github.com/GPTx-global/cidoracle/client"
	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// GetTxCmd returns the state changing commands for this module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "tx",
		Short:                      fmt.Sprintf("%s transactions subcommands", types.ModuleName),
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		NewSubmitCmd(),
		NewWithdrawCmd(),
		NewExpireCmd(),
	)

	return cmd
}

// NewSubmitCmd implements the submit command
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [content-reference]",
		Short: "Submit a content reference for completion and print its handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString(FlagRequester)
			if !common.IsHexAddress(raw) {
				return fmt.Errorf("invalid requester %q", raw)
			}

			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			handle, err := c.Submit(cmd.Context(), common.HexToAddress(raw), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), handle.Hex())
			return err
		},
	}

	cmd.Flags().String(FlagRequester, "", "Address recorded as the requester")
	_ = cmd.MarkFlagRequired(FlagRequester)
	AddEndpointFlag(cmd)
	return cmd
}

// NewWithdrawCmd implements the withdraw command. It signs with the owner key.
func NewWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Send the module balance to the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString(keyclient.FlagHome)
			if home == "" {
				home = config.DefaultHome()
			}
			from, _ := cmd.Flags().GetString(FlagFrom)
			keyFile, _ := cmd.Flags().GetString(FlagKeyFile)
			validFor, _ := cmd.Flags().GetDuration(FlagDeadline)

			key, owner, err := keyclient.LoadKey(home, from, keyFile)
			if err != nil {
				return err
			}

			var deadline uint64
			if validFor > 0 {
				deadline = uint64(time.Now().Add(validFor).Unix())
			}
			msg := types.NewMsgWithdraw(owner, deadline)
			if err := msg.Sign(key); err != nil {
				return err
			}

			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			amount, err := c.Withdraw(cmd.Context(), msg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s to %s\n", amount, owner.Hex())
			return err
		},
	}

	cmd.Flags().String(FlagFrom, "owner", "Name of the signing key under <home>/keys")
	cmd.Flags().String(FlagKeyFile, "", "Path of the signing key, overrides --from")
	cmd.Flags().Duration(FlagDeadline, time.Minute, "How long the signed withdraw stays valid, 0 for no deadline")
	AddEndpointFlag(cmd)
	return cmd
}

// NewExpireCmd implements the expire command
func NewExpireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Retire dispatched requests that are past their expiration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			expired, err := c.ExpireRequests(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, expired)
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}
