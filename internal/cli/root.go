// Package cli implements the errtrack admin and export command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/errortracker/internal/config"
	"github.com/kiranshivaraju/errortracker/internal/notify"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Backend is the slice of the database the commands use.
type Backend interface {
	store.RecordStore
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	Close()
}

type pgBackend struct {
	*store.PostgresStore
	pool *pgxpool.Pool
}

func (b *pgBackend) Close() { b.pool.Close() }

func openPostgres(ctx context.Context) (Backend, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	return &pgBackend{PostgresStore: store.NewPostgresStore(pool), pool: pool}, nil
}

type app struct {
	jsonOutput bool
	open       func(ctx context.Context) (Backend, error)
	migrate    func(databaseURL, dir string) error
	now        func() time.Time
}

// NewRootCmd builds the errtrack command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{open: openPostgres, migrate: store.RunMigrations, now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "errtrack",
		Short: "errtrack - ErrorTracker admin and export tool",
		Long: `errtrack manages the ErrorTracker database directly: it applies schema
migrations, provisions users and API keys, and lists or exports error records
with the same filters the dashboard offers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		newMigrateCmd(a),
		newUserCmd(a),
		newKeyCmd(a),
		newListCmd(a),
		newExportCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// withBackend opens the database for the duration of fn.
func (a *app) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer b.Close()
	return fn(ctx, b)
}

// notifier reports repository outcomes on stderr so stdout stays parseable.
func notifier(cmd *cobra.Command) notify.Notifier {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return notify.NewLogNotifier(logger)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
