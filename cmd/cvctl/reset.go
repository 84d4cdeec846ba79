package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvbuilder/internal/workspace"
)

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every field and list (asks for confirmation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ok := c.confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Clear all data? This cannot be undone.")
			_, err = a.Workspace.ClearAll(cmd.Context(), ok)
			if errors.Is(err, workspace.ErrConfirmationRequired) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled, nothing changed.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Document cleared.")
			return nil
		},
	}
}
