package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/errortracker/internal/export"
	"github.com/kiranshivaraju/errortracker/internal/filter"
	"github.com/kiranshivaraju/errortracker/internal/tracker"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// filterFlags mirrors the dashboard filter bar and sort controls.
type filterFlags struct {
	search     string
	severity   string
	status     string
	system     string
	assignedTo string
	from       string
	to         string
	tags       []string
	sort       string
	order      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.search, "search", "", "case-insensitive text search")
	fs.StringVar(&f.severity, "severity", filter.All, "critical, high, medium, low or all")
	fs.StringVar(&f.status, "status", filter.All, "open, investigating, resolved, closed or all")
	fs.StringVar(&f.system, "system", filter.All, "exact system name or all")
	fs.StringVar(&f.assignedTo, "assigned-to", filter.All, "exact assignee or all")
	fs.StringVar(&f.from, "from", "", "earliest timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "latest timestamp (RFC3339 or YYYY-MM-DD, whole day)")
	fs.StringSliceVar(&f.tags, "tag", nil, "required tag (can be repeated)")
	fs.StringVar(&f.sort, "sort", string(filter.SortTimestamp), "timestamp, severity or occurrences")
	fs.StringVar(&f.order, "order", string(filter.Desc), "asc or desc")
}

func (f *filterFlags) parse() (filter.Options, filter.SortKey, filter.Direction, error) {
	from, to, err := filter.ParseRange(f.from, f.to)
	if err != nil {
		return filter.Options{}, "", "", err
	}
	key, err := filter.ParseSortKey(f.sort)
	if err != nil {
		return filter.Options{}, "", "", err
	}
	dir, err := filter.ParseDirection(f.order)
	if err != nil {
		return filter.Options{}, "", "", err
	}
	severity, err := filter.ParseSeverity(f.severity)
	if err != nil {
		return filter.Options{}, "", "", err
	}
	status, err := filter.ParseStatus(f.status)
	if err != nil {
		return filter.Options{}, "", "", err
	}

	opts := filter.Options{
		Search:     f.search,
		Severity:   severity,
		Status:     status,
		System:     f.system,
		AssignedTo: f.assignedTo,
		DateFrom:   from,
		DateTo:     to,
		Tags:       models.NormalizeTags(f.tags),
	}
	return opts, key, dir, nil
}

// loadRecords fetches every record through the repository.
func loadRecords(ctx context.Context, cmd *cobra.Command, b Backend) ([]models.ErrorRecord, error) {
	return tracker.New(b, notifier(cmd)).List(ctx)
}

func newListCmd(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List error records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, key, dir, err := ff.parse()
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, b Backend) error {
				records, err := loadRecords(ctx, cmd, b)
				if err != nil {
					return err
				}
				out := filter.Apply(records, opts, key, dir)

				if a.jsonOutput {
					return outputJSON(cmd.OutOrStdout(), out)
				}
				printRecords(cmd, out, len(records))
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func printRecords(cmd *cobra.Command, records []models.ErrorRecord, total int) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tSTATUS\tSYSTEM\tCOUNT\tCREATED\tTITLE")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID.String()[:8], r.Severity, r.Status, r.System, r.Occurrences,
			r.Timestamp.Format("2006-01-02"), export.Truncate(r.Title, 50, 47))
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d errors\n", len(records), total)
}
