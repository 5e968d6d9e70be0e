package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/errortracker/internal/config"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			if err := a.migrate(db.URL, dir); err != nil {
				return err
			}
			if a.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"status": "ok", "dir": dir})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied from %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding the migration files")
	return cmd
}
