package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/subscribe"
	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// GetQueryCmd returns the cli query commands for this module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "query",
		Aliases:                    []string{"q"},
		Short:                      fmt.Sprintf("Querying commands for the %s service", types.ModuleName),
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		GetCmdQueryParams(),
		GetCmdQueryRequest(),
		GetCmdQueryRequests(),
		GetCmdQueryCompletion(),
		GetCmdQueryBalance(),
		GetCmdQueryEvents(),
	)

	return cmd
}

// GetCmdQueryParams implements the params query command
func GetCmdQueryParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Query the fee configuration, owner and module balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Params(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}

// GetCmdQueryRequest implements the request query command
func GetCmdQueryRequest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request [handle]",
		Short: "Query the ledger record of a request handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := hexutil.Decode(args[0])
			if err != nil || len(bz) != common.HashLength {
				return fmt.Errorf("invalid handle %q", args[0])
			}

			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Request(cmd.Context(), common.BytesToHash(bz))
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}

// GetCmdQueryRequests implements the requests query command
func GetCmdQueryRequests() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List ledger records, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := types.StatusUnspecified
			if raw, _ := cmd.Flags().GetString(FlagStatus); raw != "" {
				var err error
				if status, err = types.ParseRequestStatus(raw); err != nil {
					return err
				}
			}

			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Requests(cmd.Context(), status)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().String(FlagStatus, "", "Filter by status (dispatched|fulfilled|expired)")
	AddEndpointFlag(cmd)
	return cmd
}

// GetCmdQueryCompletion implements the completion query command
func GetCmdQueryCompletion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [content-reference]",
		Short: "Query the result reference recorded for a content reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Completion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}

// GetCmdQueryBalance implements the balance query command
func GetCmdQueryBalance() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Query the token balances of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}

			c, err := coreClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Balance(cmd.Context(), common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}

// GetCmdQueryEvents implements the events command. It streams committed
// events as JSON lines until the feed closes or the command is interrupted.
func GetCmdQueryEvents() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events [event-type...]",
		Short: "Follow the committed event feed, optionally filtered by event type",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := cmd.Flags().GetString(FlagEndpoint)
			if err != nil {
				return err
			}
			m, err := subscribe.NewManager(log.NewNopLogger(), endpoint, args...)
			if err != nil {
				return err
			}
			ch, err := m.Subscribe(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for msg := range ch {
				if err := enc.Encode(msg); err != nil {
					return err
				}
			}
			return nil
		},
	}

	AddEndpointFlag(cmd)
	return cmd
}
