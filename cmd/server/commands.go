package main

import (
	"errors"
	"fmt"

	"github.com/cpcoach/backend/internal/auth"
	"github.com/cpcoach/backend/internal/catalog"
	"github.com/cpcoach/backend/internal/database"
	"github.com/cpcoach/backend/internal/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled {
			return errors.New("database is disabled in configuration")
		}
		db, err := database.Connect(cmd.Context(), cfg.Database.Options())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return err
		}
		logging.Info().Msg("migrations applied")
		return nil
	},
}

var syncProblemsCmd = &cobra.Command{
	Use:   "sync-problems",
	Short: "Fetch the Codeforces problem set into the database and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if db == nil {
			return errors.New("database is disabled in configuration")
		}
		defer db.Close()

		manager := catalog.NewManager(catalog.New(), catalog.NewStore(db), newRatingClient(cfg), 0)
		n, err := manager.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d problems\n", n)
		return nil
	},
}

var hashAdminKeyCmd = &cobra.Command{
	Use:   "hash-admin-key <key>",
	Short: "Print the bcrypt hash to use as auth.admin_key_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := auth.HashAdminKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}
