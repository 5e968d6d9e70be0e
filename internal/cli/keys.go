package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/errortracker/internal/apikey"
	"github.com/kiranshivaraju/errortracker/internal/store"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

type issuedKey struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
}

type userResult struct {
	User   *models.User `json:"user"`
	APIKey issuedKey    `json:"api_key"`
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, name string
	var admin bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user and issue their first API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			return a.withBackend(cmd, func(ctx context.Context, b Backend) error {
				now := a.now().UTC()
				user := &models.User{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
				if n := strings.TrimSpace(name); n != "" {
					user.FullName = &n
				}
				if err := b.CreateUser(ctx, user); err != nil {
					if errors.Is(err, store.ErrDuplicateKey) {
						return fmt.Errorf("user %s already exists", email)
					}
					return err
				}

				key, err := a.issueKey(ctx, b, user, "default", admin)
				if err != nil {
					return err
				}
				return a.printKey(cmd, userResult{User: user, APIKey: key})
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address of the new user")
	create.Flags().StringVar(&name, "name", "", "full name shown as the record assignee")
	create.Flags().BoolVar(&admin, "admin", false, "grant the admin scope to the issued key")

	cmd.AddCommand(create)
	return cmd
}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}

	var email, name string
	var admin bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			return a.withBackend(cmd, func(ctx context.Context, b Backend) error {
				user, err := b.GetUserByEmail(ctx, email)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no user with email %s", email)
				}
				if err != nil {
					return err
				}

				key, err := a.issueKey(ctx, b, user, name, admin)
				if err != nil {
					return err
				}
				return a.printKey(cmd, userResult{User: user, APIKey: key})
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address of the key owner")
	create.Flags().StringVar(&name, "name", "cli", "label for the key")
	create.Flags().BoolVar(&admin, "admin", false, "grant the admin scope")

	cmd.AddCommand(create)
	return cmd
}

func (a *app) issueKey(ctx context.Context, b Backend, user *models.User, name string, admin bool) (issuedKey, error) {
	scopes := []string{models.ScopeRead, models.ScopeWrite}
	if admin {
		scopes = append(scopes, models.ScopeAdmin)
	}

	generated, err := apikey.Generate()
	if err != nil {
		return issuedKey{}, err
	}

	now := a.now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    user.ID,
		Name:      name,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.CreateAPIKey(ctx, key); err != nil {
		return issuedKey{}, fmt.Errorf("store api key: %w", err)
	}

	return issuedKey{
		ID:        key.ID,
		Name:      key.Name,
		Key:       generated.Raw,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
	}, nil
}

func (a *app) printKey(cmd *cobra.Command, res userResult) error {
	if a.jsonOutput {
		return outputJSON(cmd.OutOrStdout(), res)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User: %s (%s)\n", res.User.DisplayName(), res.User.ID)
	fmt.Fprintf(out, "Key:  %s [%s]\n", res.APIKey.Name, strings.Join(res.APIKey.Scopes, ","))
	fmt.Fprintf(out, "\n  %s\n\nStore this key now; it cannot be shown again.\n", res.APIKey.Key)
	return nil
}
