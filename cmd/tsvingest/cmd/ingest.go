package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tsvingest/internal/core"
)

// Run one ingestion pass over a tool output directory.
func ingestCmd(app *App) *cobra.Command {
	var (
		ownerID    string
		ownerName  string
		singleFile bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <output-dir>",
		Short: "Ingest every mapped TSV file under an output directory.",
		Long: `Ingest every mapped TSV file under an output directory.

Records are attached to a data source root by default. With --file they are
attached to the single source file identified by --owner-id instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = core.ContextWithCaller(ctx, "cli")

			ing, err := app.Ingestor(ctx)
			if err != nil {
				return err
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if ownerName == "" {
				ownerName = filepath.Base(dir)
			}
			owner := core.Owner{ID: ownerID, Name: ownerName}

			var result *core.PassResult
			if singleFile {
				result, err = ing.ProcessFile(ctx, dir, owner)
			} else {
				result, err = ing.ProcessDataSource(ctx, dir, owner)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				err = enc.Encode(result)
			} else {
				err = printPassResult(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}
			if result.Cancelled {
				return fmt.Errorf("%s: %w", core.FormatUserError(core.ErrCancelled), core.ErrCancelled)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner-id", "", "id of the data source or file records are attached to")
	cmd.Flags().StringVar(&ownerName, "owner-name", "", "display name of the owner (default: directory name)")
	cmd.Flags().BoolVar(&singleFile, "file", false, "attach records to a single source file instead of a data source")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the pass result as JSON")
	_ = cmd.MarkFlagRequired("owner-id")

	return cmd
}

func printPassResult(w io.Writer, r *core.PassResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tRECORD TYPE\tROWS\tACCEPTED\tREJECTED\tMISMATCHED\tNOTE")
	for _, f := range r.Files {
		note := f.Error
		if f.Skipped {
			note = "no processing rule"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			f.FileName, f.RecordType, f.RowsRead, f.RowsAccepted, f.RowsRejected, f.RowsMismatched, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\npass %s: %d records created, %d posted in %d batch(es), %s\n",
		r.PassID, r.RecordsCreated, r.RecordsPosted, r.Batches, r.Duration.Round(1e6))
	for _, e := range r.PostErrors {
		fmt.Fprintf(w, "post error: %s\n", e)
	}
	return nil
}
