package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvbuilder/internal/workspace"
)

func newExampleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Replace the document with example content (asks for confirmation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ok := c.confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Replace the current document with example data?")
			doc, err := a.Workspace.LoadExample(cmd.Context(), ok)
			if errors.Is(err, workspace.ErrConfirmationRequired) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled, nothing changed.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded example for %s.\n", doc.Personal.FullName)
			return nil
		},
	}
}
