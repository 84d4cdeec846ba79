package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd(c *cli) *cobra.Command {
	var settings bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var v any = a.Workspace.Document()
			if settings {
				v = a.Workspace.Settings()
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Errorf("encode document: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&settings, "settings", false, "Print the theme and paper selection instead")
	return cmd
}
