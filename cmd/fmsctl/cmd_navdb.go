package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"infinite-experiment/fmsuplink/internal/db"
	"infinite-experiment/fmsuplink/internal/navdata"
)

// navdbCmd manages the navigation database
var navdbCmd = &cobra.Command{
	Use:   "navdb",
	Short: "Manage the navigation database",
	Long: `Available subcommands:
  migrate - Create or update the nav data tables
  import  - Replace the nav data with the datasets of a directory
  fixes   - Look up fixes by ident`,
}

var navdbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the nav data tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		navDB, err := db.OpenNavDB(cfg.NavDB.Driver, cfg.NavDB.DSN, cfg.NavDB.MaxOpenConns)
		if err != nil {
			return err
		}
		return navdata.NewImporter(navDB).Migrate(cmd.Context())
	},
}

var navdbImportCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Replace the nav data with the datasets of a directory",
	Long: `Reads fixes.json, airways.json and procedures.json (optionally
zstd-compressed as *.json.zst) from dir and replaces the nav data tables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		navDB, err := db.OpenNavDB(cfg.NavDB.Driver, cfg.NavDB.DSN, cfg.NavDB.MaxOpenConns)
		if err != nil {
			return err
		}

		im := navdata.NewImporter(navDB)
		if err := im.Migrate(cmd.Context()); err != nil {
			return err
		}
		stats, err := im.ImportDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d fixes, %d airways, %d procedures\n", stats.Fixes, stats.Airways, stats.Procedures)
		return nil
	},
}

var navdbFixesCmd = &cobra.Command{
	Use:   "fixes [ident]",
	Short: "Look up fixes by ident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		navDB, err := db.OpenNavDB(cfg.NavDB.Driver, cfg.NavDB.DSN, cfg.NavDB.MaxOpenConns)
		if err != nil {
			return err
		}
		fixes, err := navdata.NewStore(navDB, nil).SearchFixes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), fixes)
	},
}

func init() {
	navdbCmd.AddCommand(navdbMigrateCmd, navdbImportCmd, navdbFixesCmd)
}
