package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/db"
	"github.com/beemart/server/internal/repo"
)

func newCreateAdminCommand() *cobra.Command {
	var in auth.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a superuser, or promote an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, database, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(ctx, database); err != nil {
				return err
			}

			accounts := repo.NewAccountRepo(database)
			jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			svc := auth.NewAuthService(accounts, nil, jwtService, nil, nil, nil)

			account, err := svc.CreateSuperuser(ctx, in)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			log.Info().Str("user_id", account.ID.String()).Str("email", account.Email).Msg("superuser ready")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password for a new account")
	cmd.Flags().StringVar(&in.FullName, "name", "Administrator", "full name for a new account")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
