package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvbuilder/internal/cv"
)

func newThemesCmd(_ *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the available themes and paper sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Themes:")
			for _, t := range cv.Themes {
				fmt.Fprintf(out, "  %s\n", t)
			}
			fmt.Fprintln(out, "Paper sizes:")
			for _, p := range cv.PaperSizes {
				d := p.Dimensions()
				fmt.Fprintf(out, "  %-7s %gx%g mm\n", p, d.WidthMM, d.HeightMM)
			}
			return nil
		},
	}
}
