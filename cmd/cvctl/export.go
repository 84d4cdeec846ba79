package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		outDir string
		theme  string
		paper  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the document and write the PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.build(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if theme != "" || paper != "" {
				s := a.Workspace.Settings()
				if theme != "" {
					if s.Theme, err = cv.ParseTheme(theme); err != nil {
						return err
					}
				}
				if paper != "" {
					if s.Paper, err = cv.ParsePaperSize(paper); err != nil {
						return err
					}
				}
				a.Workspace.SetSettings(cmd.Context(), s)
			}

			res, err := a.Workspace.Export(cmd.Context(), uuid.NewString())
			if errors.Is(err, capture.ErrCapabilityUnavailable) {
				return errors.New("PDF export is not available: no headless Chromium could be started (set CHROME_PATH)")
			}
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s %v\n", w.Message, w.MissingKeys)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			path := filepath.Join(outDir, diskName(res.Filename))
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %s)\n", path, res.Pages, res.Paper)
			if res.ArchiveURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Archived copy: %s\n", res.ArchiveURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the PDF to")
	cmd.Flags().StringVar(&theme, "theme", "", "Theme to use (saved as the new selection)")
	cmd.Flags().StringVar(&paper, "paper", "", "Paper size A4 or Letter (saved as the new selection)")
	return cmd
}

// diskName 把下载文件名变成 outDir 下的单个文件名，路径分隔符替换为 "_"。
func diskName(filename string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator || r == 0 {
			return '_'
		}
		return r
	}, filename)
}
