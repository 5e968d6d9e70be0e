package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/errortracker/internal/export"
	"github.com/kiranshivaraju/errortracker/internal/filter"
)

func newExportCmd(a *app) *cobra.Command {
	var ff filterFlags
	var format, out string
	var all bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export error records as CSV or PDF",
		Long: `Export writes the filtered view (or every record with --all) as CSV or PDF.
Without --out the file is named errors-<scope>-<date>.<ext> in the current
directory; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			opts, key, dir, err := ff.parse()
			if err != nil {
				return err
			}
			scope := export.ScopeFiltered
			if all {
				scope = export.ScopeAll
			}

			return a.withBackend(cmd, func(ctx context.Context, b Backend) error {
				records, err := loadRecords(ctx, cmd, b)
				if err != nil {
					return err
				}
				if scope == export.ScopeFiltered {
					records = filter.Apply(records, opts, key, dir)
				}

				now := a.now()
				var buf bytes.Buffer
				if err := export.Write(&buf, f, records, now); err != nil {
					return fmt.Errorf("export failed: %w", err)
				}

				if out == "-" {
					_, err := buf.WriteTo(cmd.OutOrStdout())
					return err
				}
				path := out
				if path == "" {
					path = export.Filename(f, scope, now)
				}
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}

				if a.jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]any{
						"path": path, "format": f, "scope": scope, "count": len(records),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d errors to %s\n", len(records), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or pdf")
	cmd.Flags().StringVar(&out, "out", "", "output file, or - for stdout")
	cmd.Flags().BoolVar(&all, "all", false, "export every record, ignoring filters")
	ff.register(cmd)
	return cmd
}
