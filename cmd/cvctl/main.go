// Package main implements cvctl, a command line client for the résumé workspace.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cvbuilder/internal/app"
	"cvbuilder/internal/config"
)

// cli 保存全局 flag，并负责按需构建 App。
type cli struct {
	yes     bool
	verbose bool

	stdout io.Writer
	stderr io.Writer
	// build 在测试中可替换。
	build func(ctx context.Context, browser bool) (*app.App, error)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "cvctl",
		Short:         "Edit and export the résumé workspace",
		Long:          "cvctl reads and edits the same persisted résumé as the web UI and exports it to a paginated PDF.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().BoolVarP(&c.yes, "yes", "y", false, "Confirm destructive actions without prompting")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Write logs to stderr")

	root.AddCommand(
		newShowCmd(c),
		newExportCmd(c),
		newResetCmd(c),
		newExampleCmd(c),
		newImportCmd(c),
		newThemesCmd(c),
	)
	return root
}

func (c *cli) defaultBuild(ctx context.Context, browser bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logOut := io.Discard
	if c.verbose {
		logOut = c.stderr
	}
	return app.Build(ctx, cfg, app.NewLogger(cfg.Log, logOut), app.Options{Browser: browser})
}

func main() {
	_ = godotenv.Load()

	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	c.build = c.defaultBuild
	if err := newRootCmd(c).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
