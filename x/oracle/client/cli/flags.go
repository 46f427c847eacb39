package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GPTx-global/cidoracle/oracle/client"
)

const (
	FlagEndpoint  = "endpoint"
	FlagStatus    = "status"
	FlagRequester = "requester"
	FlagFrom      = "from"
	FlagKeyFile   = "key-file"
	FlagDeadline  = "deadline"

	DefaultEndpoint = "http://127.0.0.1:8080"
)

// AddEndpointFlag adds the service endpoint flag to cmd.
func AddEndpointFlag(cmd *cobra.Command) {
	cmd.Flags().String(FlagEndpoint, DefaultEndpoint, "Oracle service endpoint")
}

func coreClient(cmd *cobra.Command) (*client.CoreClient, error) {
	endpoint, err := cmd.Flags().GetString(FlagEndpoint)
	if err != nil {
		return nil, err
	}
	return client.NewCoreClient(endpoint, nil), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}
