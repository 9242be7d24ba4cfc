package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/store"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
}

func (r MigrateResult) String() string {
	return fmt.Sprintf("Database %s is at schema version %d", r.Database, r.SchemaVersion)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Open the configured SQLite database, creating it if needed, and apply any
pending schema migrations. Safe to run repeatedly.

Example:
  storefront migrate --db ./storefront.db
  storefront migrate --config storefront.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts)
		},
	}
}

func runMigrate(cmd *cobra.Command, opts *RootOptions) error {
	formatter := newFormatter(cmd, opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	formatter.VerboseLog("Opening database: %s", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		_ = formatter.Error("E_DATABASE", "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	version, err := st.SchemaVersion(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read schema version", err)
	}

	return formatter.Success(MigrateResult{Database: cfg.Database.Path, SchemaVersion: version})
}
