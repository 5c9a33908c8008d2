package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for the ingestion and admin endpoints",
	}
	cmd.AddCommand(keysCreateCmd(), keysListCmd(), keysRevokeCmd())
	return cmd
}

func keysCreateCmd() *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a key and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withValidator(cmd.Context(), func(v *apikey.Validator) error {
				var expiresAt *time.Time
				if ttl > 0 {
					t := time.Now().Add(ttl).UTC()
					expiresAt = &t
				}
				raw, info, err := v.CreateKey(cmd.Context(), args[0], scopes, expiresAt)
				if err != nil {
					return err
				}
				return json.NewEncoder(os.Stdout).Encode(struct {
					Key string `json:"key"`
					*apikey.KeyInfo
				}{raw, info})
			})
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{apikey.ScopeIngest}, "scopes to grant (ingest, admin)")
	cmd.Flags().DurationVar(&ttl, "expires-in", 0, "key lifetime (default: never expires)")
	return cmd
}

func keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withValidator(cmd.Context(), func(v *apikey.Validator) error {
				keys, err := v.ListKeys(cmd.Context())
				if err != nil {
					return err
				}
				out := json.NewEncoder(os.Stdout)
				for _, k := range keys {
					if err := out.Encode(k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func keysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke ID",
		Short: "Revoke a key by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withValidator(cmd.Context(), func(v *apikey.Validator) error {
				if err := v.RevokeKey(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("revoking %s: %w", args[0], err)
				}
				fmt.Fprintf(os.Stderr, "revoked %s\n", args[0])
				return nil
			})
		},
	}
}

func withValidator(ctx context.Context, fn func(v *apikey.Validator) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.New(db).EnsureSchema(ctx); err != nil {
		return err
	}
	return fn(apikey.NewValidator(db, 0))
}
