package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cvbuilder/internal/schema"
)

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the document with a JSON file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc, err := schema.Decode(raw)
			if err != nil {
				var ve *schema.ValidationError
				if errors.As(err, &ve) {
					fmt.Fprint(cmd.ErrOrStderr(), ve.Error())
					return errors.New("document does not match the schema")
				}
				return err
			}

			a, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			doc = a.Workspace.Import(cmd.Context(), doc)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d jobs, %d degrees, %d certificates, %d hobbies, %d portfolio items.\n",
				doc.Personal.FullName, len(doc.Experience), len(doc.Education), len(doc.Certificates), len(doc.Hobbies), len(doc.Portfolio))
			return nil
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
