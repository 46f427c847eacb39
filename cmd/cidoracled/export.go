package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GPTx-global/cidoracle/oracle/config"
	"github.com/GPTx-global/cidoracle/oracle/log"
)

// ExportCmd prints the committed state as a genesis document. The service
// must not be running.
func ExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the committed state as genesis JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := homeDir(cmd)
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), log.MustNew(cmd.ErrOrStderr(), "error"), home, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			gs, err := a.ExportGenesis(cmd.Context())
			if err != nil {
				return err
			}
			bz, err := json.MarshalIndent(gs, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return err
		},
	}
}
