package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// Print the loaded mapping tables.
func mappingsCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Print the file, record type and column mappings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ing, err := app.Ingestor(cmd.Context())
			if err != nil {
				return err
			}
			files := ing.Mapping().Describe()

			switch strings.ToLower(output) {
			case "table", "":
				return printMappings(cmd.OutOrStdout(), files)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(files)
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func printMappings(w io.Writer, files []core.FileDescription) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tRECORD TYPE\tCOLUMN\tATTRIBUTE\tKIND\tREQUIRED")
	for _, f := range files {
		rt := f.RecordType
		if rt == "" {
			rt = "(unresolved)"
		}
		for _, c := range f.Columns {
			attr := c.AttributeType
			if c.Ignored {
				attr = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n", f.FileName, rt, c.Column, attr, c.ValueKind, c.Required)
		}
	}
	return tw.Flush()
}

// Write the bundled mapping document so it can be edited.
func extractMappingCmd(app *App) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "extract-mapping <dir>",
		Short: "Write the bundled mapping document to a directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			path, err := core.ExtractDefaultMapping(dir, overwrite)
			if err != nil {
				return err
			}
			app.Logger.Info("mapping document written", "path", path)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if app.Config.Ingest.MappingFile == "" {
				fmt.Fprintf(os.Stderr, "set INGEST_MAPPING_FILE=%s to use the extracted copy\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	return cmd
}
