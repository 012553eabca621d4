// Package cli holds the incident-dashboard command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-incident-analysis-ui/internal/config"
	"go-incident-analysis-ui/internal/connectors/sqlstore"
	"go-incident-analysis-ui/internal/incident"
	"go-incident-analysis-ui/internal/scenario"
)

// NewRootCommand builds the command tree. Flags are bound into the same
// viper keys as the APP_* environment variables.
func NewRootCommand(version string) *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:   "incident-dashboard",
		Short: "Incident analysis dashboard",
		Long: `incident-dashboard serves a single-page dashboard for one alert at a time:
KPIs, a transaction time series, per-dimension breakdowns with outlier
highlighting and a correlation verdict that names the primary factor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("source", "catalog", "Snapshot source (catalog, sql)")
	flags.String("db-driver", "mysql", "SQL driver for the sql source (mysql, sqlite)")
	flags.String("db-sqlite-path", "", "SQLite database file for the sql source")
	bindFlags(v, root, map[string]string{
		"log-level":      "app_log_level",
		"source":         "app_snapshot_source",
		"db-driver":      "app_db_driver",
		"db-sqlite-path": "app_db_sqlite_path",
	})

	root.AddCommand(
		newServeCommand(v, version),
		newAnalyzeCommand(v),
		newScenariosCommand(v),
		newSeedCommand(v),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		f := cmd.PersistentFlags().Lookup(flag)
		if f == nil {
			f = cmd.Flags().Lookup(flag)
		}
		if f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSource returns the configured snapshot source and a closer for it.
func openSource(cfg config.Config) (incident.Source, io.Closer, error) {
	if cfg.SnapshotSource == "sql" {
		store, err := sqlstore.NewStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	catalog, err := scenario.LoadCatalog()
	if err != nil {
		return nil, nil, err
	}
	return catalog, noopCloser{}, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
