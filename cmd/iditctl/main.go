// Command iditctl administers an IDIT installation: schema, demo data,
// users and snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/iditgo/internal/auth"
	"github.com/xelth-com/iditgo/internal/buildinfo"
	"github.com/xelth-com/iditgo/internal/config"
	"github.com/xelth-com/iditgo/internal/database"
	"github.com/xelth-com/iditgo/internal/ledger"
	"github.com/xelth-com/iditgo/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once the root command ran
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "iditctl",
		Short:         "Administer the IDIT inventory server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg.Database, logger.Named(log, "database"))
			if err != nil {
				return err
			}
			// commands always run against the current schema
			if err := database.Migrate(db.DB); err != nil {
				db.Close()
				return fmt.Errorf("migrate: %w", err)
			}
			a.cfg, a.log, a.db = cfg, log, db
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.AddCommand(
		versionCmd(),
		migrateCmd(a),
		seedCmd(a),
		userCmd(a),
		snapshotCmd(a),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := buildinfo.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "iditctl commit %s (committed %s, built %s)\n",
				info.Commit, info.CommitTime, info.BuildTime)
		},
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Synchronize the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPreRunE already migrated
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo floor plan and product catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := database.Seed(cmd.Context(), a.db.DB, a.log)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "database already has locations, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d areas, %d sub-locations, %d products\n",
				res.Areas, res.SubLocations, res.Products)
			return nil
		},
	}
}

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var in auth.UserInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a PIN user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := auth.NewService(a.db.DB, logger.Named(a.log, "auth"), a.cfg.JWTSecret, a.cfg.TokenTTL)
			user, err := svc.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%s)\n", user.Role, user.Name, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Pin, "pin", "", "4-digit login PIN")
	create.Flags().StringVar(&in.Role, "role", "staff", "admin or staff")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("pin")

	cmd.AddCommand(create)
	return cmd
}

func snapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage inventory snapshots",
	}

	var notes string
	take := &cobra.Command{
		Use:   "take",
		Short: "Capture the current inventory as a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ledger.NewService(a.db.DB, ledger.Options{Logger: logger.Named(a.log, "ledger")})
			in := ledger.SnapshotInput{}
			if notes != "" {
				in.Notes = &notes
			}
			snap, err := svc.CreateSnapshot(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s with %d entries\n", snap.ID, len(snap.Entries))
			return nil
		},
	}
	take.Flags().StringVar(&notes, "notes", "", "free-text note stored with the snapshot")

	cmd.AddCommand(take)
	return cmd
}
