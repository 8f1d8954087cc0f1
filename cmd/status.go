package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/bncbot/internal/adapters/render/status"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted BNC users and request queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			state, err := app.repo.Load()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), statusadapter.Render(state))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw state as JSON")

	return cmd
}
