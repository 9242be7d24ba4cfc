package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/config"
)

// ConfigInitOptions holds flags for the config init command.
type ConfigInitOptions struct {
	*RootOptions
	Force bool
}

// ConfigInitResult reports the written file.
type ConfigInitResult struct {
	Path string `json:"path"`
}

func (r ConfigInitResult) String() string {
	return fmt.Sprintf("Wrote default configuration to %s", r.Path)
}

// DefaultConfigPath is where config init writes without an argument.
const DefaultConfigPath = "storefront.yaml"

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(newConfigInitCommand(&ConfigInitOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newConfigCheckCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(opts *ConfigInitOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented default config file",
		Long: `Write a YAML config file holding every setting at its default value.

Example:
  storefront config init
  storefront config init /etc/storefront.yaml --force`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigInit(cmd, opts, path)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, opts *ConfigInitOptions, path string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			_ = formatter.Error("E_EXISTS", "config file already exists", path)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		} else if !errors.Is(err, os.ErrNotExist) {
			return WrapExitError(ExitCommandError, "failed to check config file", err)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		_ = formatter.Error("E_WRITE", "failed to write config", err.Error())
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}
	return formatter.Success(ConfigInitResult{Path: path})
}

// ConfigCheckResult summarizes a valid configuration.
type ConfigCheckResult struct {
	Database string `json:"database"`
	Addr     string `json:"addr"`
	Mail     string `json:"mail"`
	Payment  string `json:"payment"`
}

func (r ConfigCheckResult) String() string {
	return fmt.Sprintf("Configuration OK: listen %s, database %s, mail %s, payment %s",
		r.Addr, r.Database, r.Mail, r.Payment)
}

func newConfigCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the effective configuration",
		Long: `Load --config plus STOREFRONT_* environment overrides and report every
invalid setting.

Example:
  storefront config check --config storefront.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(cmd, opts)
			cfg, err := loadConfig(opts)
			if err != nil {
				_ = formatter.Error("E_CONFIG", "invalid configuration", err.Error())
				return err
			}
			return formatter.Success(ConfigCheckResult{
				Database: cfg.Database.Path,
				Addr:     cfg.Server.Addr,
				Mail:     cfg.Mail.Driver,
				Payment:  cfg.Payment.Provider,
			})
		},
	}
}
