package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wolfman30/visit-report-ai/internal/masterdata"
)

// NewOptionsCommand creates the options command
func NewOptionsCommand(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show the loaded master data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := e.master()
			if err != nil {
				return err
			}
			return writeOptions(cmd.OutOrStdout(), master, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "yaml or json")
	return cmd
}

func writeOptions(w io.Writer, master *masterdata.Data, format string) error {
	switch format {
	case "json":
		return printJSON(w, master)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(master); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
