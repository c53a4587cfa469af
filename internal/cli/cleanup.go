package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgjson/internal/config"
	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/internal/importer"
	"github.com/vvka-141/pgjson/internal/logging"
	"github.com/vvka-141/pgjson/internal/ui"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop staging tables left behind by failed imports",
	Long: `Drop staging tables left behind by failed imports.

A failed import keeps its staging table (<prefix>temp_table_<unix seconds>)
in the inference schema so the raw records can be inspected. This command
lists those tables and drops them after confirmation.

You are asked to type the schema name to confirm. With --force a short
countdown is shown instead. --dry-run only lists the tables.

Examples:
  pgjson cleanup -d analytics --dry-run
  pgjson cleanup -d analytics
  pgjson cleanup --connection "postgresql://user@host/db" --prefix etl_ --force`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

type cleanupFlagValues struct {
	connectionFlags

	prefix  string
	schema  string
	force   bool
	dryRun  bool
	timeout time.Duration
}

var cleanupFlags cleanupFlagValues

func resetCleanupFlags() {
	cleanupFlags = cleanupFlagValues{timeout: 3 * time.Minute}
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	registerCleanupFlags(cleanupCmd, &cleanupFlags)
}

func registerCleanupFlags(cmd *cobra.Command, f *cleanupFlagValues) {
	registerConnectionFlags(cmd, &f.connectionFlags)

	cmd.Flags().StringVar(&f.prefix, "prefix", "",
		"Prefix used by the imports (default \""+pgjson.DefaultPrefix+"\")")
	cmd.Flags().StringVar(&f.schema, "schema", "",
		"Inference schema to clean (default <prefix>"+pgjson.InferenceSchemaSuffix+")")
	cmd.Flags().BoolVar(&f.force, "force", false,
		"Skip the interactive confirmation prompt\n"+
			"A countdown is shown before tables are dropped")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false,
		"Only list the staging tables")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 3*time.Minute,
		"Catastrophic failure protection timeout")
}

// cleanupTarget returns the schema and the staging name prefix to clean.
func cleanupTarget(projectCfg *config.ProjectConfig) (schema, prefix string) {
	var defaults config.ImportConfig
	if projectCfg != nil {
		defaults = projectCfg.Import
	}
	cfg := pgjson.ImportConfig{
		Prefix:          firstSet(cleanupFlags.prefix, defaults.Prefix),
		InferenceSchema: firstSet(cleanupFlags.schema, defaults.Schema),
	}.WithDefaults()
	return cfg.InferenceSchema, cfg.StagingPrefix()
}

func runCleanup(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	resolved, err := resolveConnectionFromFlags(cleanupFlags.connectionFlags, projectCfg, verbose)
	if err != nil {
		return err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, cleanupFlags.timeout)
	if err != nil {
		return err
	}
	schema, prefix := cleanupTarget(projectCfg)

	ctx, cancel := interruptibleContext(timeout, "cleanup")
	defer cancel()

	logger := logging.NewConsoleLogger(verbose)
	connector, err := db.NewConnector(resolved.ConnConfig, logger)
	if err != nil {
		return err
	}
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	var approver pgjson.Approver
	if cleanupFlags.force {
		approver = ui.NewForcedApprover(verbose)
	} else {
		approver = ui.NewInteractiveApprover(verbose)
	}

	res, err := importer.NewCleaner(catalog.New(), approver, logger).Clean(ctx, pool, schema, prefix, cleanupFlags.dryRun)
	if res != nil {
		listed := res.Dropped
		if cleanupFlags.dryRun {
			listed = res.Found
		}
		for _, t := range listed {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}
