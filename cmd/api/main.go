package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/config"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/routes"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "storefront-api",
		Short:        "Storefront API server",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newPurgeTokensCommand())
	return cmd
}

// bootstrap loads config and opens the primary database.
func bootstrap() (*config.Config, *handlers.Handlers, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.OpenDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	app := &handlers.Handlers{
		DB:     db,
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}
	return cfg, app, nil
}

func newServeCommand() *cobra.Command {
	var port string
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, app, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(app.DB)

			if !skipMigrate {
				if err := database.Migrate(app.DB); err != nil {
					return err
				}
			}
			if port != "" {
				cfg.Port = port
			}

			gin.SetMode(cfg.GinMode)

			// --- Background Worker ---
			// Expired refresh tokens are rejected anyway; this keeps the table small.
			go func() {
				ticker := time.NewTicker(cfg.TokenPurgeInterval)
				defer ticker.Stop()

				log.Printf("Background Worker Started: purging expired refresh tokens every %s", cfg.TokenPurgeInterval)
				for range ticker.C {
					app.PurgeExpiredRefreshTokens(context.Background())
				}
			}()

			router := routes.SetupRouter(app, cfg)

			log.Printf("Starting storefront API server on port %s...", cfg.Port)
			if err := router.Run(":" + cfg.Port); err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate the schema on start")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(app.DB)

			if err := database.Migrate(app.DB); err != nil {
				return err
			}
			log.Println("Schema migrated successfully")
			return nil
		},
	}
}

func newPurgeTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired refresh tokens once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(app.DB)

			n, err := app.PurgeExpiredRefreshTokens(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired refresh token(s)\n", n)
			return nil
		},
	}
}
