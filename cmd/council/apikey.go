package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rpggio/council/internal/identity"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/spf13/cobra"
)

func apikeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage HTTP bearer tokens",
	}
	cmd.AddCommand(apikeyCreateCommand())
	cmd.AddCommand(apikeyRevokeCommand())
	return cmd
}

func apikeyCreateCommand() *cobra.Command {
	var (
		rawIdentity string
		description string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a bearer token bound to an identity; the token is printed once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			return createAPIKey(cmd.Context(), cmd.OutOrStdout(), sqlite.NewAPIKeyRepository(db), rawIdentity, description)
		},
	}
	cmd.Flags().StringVar(&rawIdentity, "identity", "", "0x-prefixed address the token acts as")
	cmd.Flags().StringVar(&description, "description", "", "free-form note stored with the key")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

func apikeyRevokeCommand() *cobra.Command {
	var rawIdentity string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke every bearer token bound to an identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := identity.Parse(rawIdentity)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := sqlite.NewAPIKeyRepository(db).Revoke(cmd.Context(), addr)
			if err != nil {
				return fmt.Errorf("revoke api keys: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d key(s) for %s\n", n, addr.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&rawIdentity, "identity", "", "0x-prefixed address whose tokens are revoked")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

func createAPIKey(ctx context.Context, out io.Writer, repo *sqlite.APIKeyRepository, rawIdentity, description string) error {
	addr, err := identity.Parse(rawIdentity)
	if err != nil {
		return err
	}
	token := uuid.NewString()
	if err := repo.Add(ctx, token, addr, description); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	fmt.Fprintf(out, "identity: %s\ntoken:    %s\n", addr.Hex(), token)
	return nil
}
