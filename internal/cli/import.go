package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgjson/internal/config"
	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/internal/importer"
	"github.com/vvka-141/pgjson/internal/logging"
	"github.com/vvka-141/pgjson/internal/tui"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a newline-delimited JSON file into a new table",
	Long: `Import a newline-delimited JSON file into a new PostgreSQL table.

The file is copied into a jsonb staging table in the inference schema. The
distinct top-level keys of all records become the text columns of a new
table, which is filled with one INSERT ... SELECT. The staging table is
dropped at the end.

Each line must hold one JSON object. Blank lines are skipped. Unless
--no-validate is given the file is checked locally before connecting.

On failure the staging table is kept for inspection unless
--cleanup-on-failure is set. Leftovers can be removed with 'pgjson cleanup'.

The qualified name of the created table is printed on stdout.

Examples:
  pgjson import ./events.ndjson -d analytics
  pgjson import ./events.ndjson --connection "postgresql://user@host/db" --table events
  pgjson import ./dump.jsonl --target-schema public --cleanup-on-failure
  pgjson import ./events.ndjson --azure -h myserver.postgres.database.azure.com -d mydb`,
	Args:              RequireInputFile,
	ValidArgsFunction: completeInputFiles,
	RunE:              runImport,
}

type importFlagValues struct {
	connectionFlags

	prefix           string
	schema           string
	targetSchema     string
	table            string
	cleanupOnFailure bool
	noValidate       bool
	noHistory        bool
	timeout          time.Duration
}

var importFlags importFlagValues

func resetImportFlags() {
	importFlags = importFlagValues{timeout: pgjson.DefaultTimeout}
}

func init() {
	rootCmd.AddCommand(importCmd)
	registerImportFlags(importCmd, &importFlags)
}

func registerImportFlags(cmd *cobra.Command, f *importFlagValues) {
	registerConnectionFlags(cmd, &f.connectionFlags)

	cmd.Flags().StringVar(&f.prefix, "prefix", "",
		"Prefix of every created schema and table (default \""+pgjson.DefaultPrefix+"\")")
	cmd.Flags().StringVar(&f.schema, "schema", "",
		"Inference schema holding the staging table (default <prefix>"+pgjson.InferenceSchemaSuffix+")")
	cmd.Flags().StringVar(&f.targetSchema, "target-schema", "",
		"Schema of the created table (default: the inference schema)")
	cmd.Flags().StringVar(&f.table, "table", "",
		"Name of the created table, used verbatim\n"+
			"Fails if the table exists (default <prefix>"+pgjson.TargetTableInfix+"<unix seconds>)")
	cmd.Flags().BoolVar(&f.cleanupOnFailure, "cleanup-on-failure", false,
		"Drop the staging table when a later step fails\n"+
			"By default it is kept for inspection")
	cmd.Flags().BoolVar(&f.noValidate, "no-validate", false,
		"Skip the local validation pass over the file\n"+
			"Bad lines are then reported by the server")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false,
		"Do not append the run to <prefix>"+pgjson.ImportLogSuffix)

	// Timeout flag - catastrophic failure protection, not normal timeout control
	cmd.Flags().DurationVar(&f.timeout, "timeout", pgjson.DefaultTimeout,
		"Catastrophic failure protection timeout\n"+
			"Prevents indefinite hangs from network issues or lock waits\n"+
			"Examples: 30s, 5m, 1h30m")
}

// buildImportConfig merges flags, environment and pgjson.yaml into an ImportConfig.
// Flags win over pgjson.yaml, which wins over built-in defaults.
func buildImportConfig(cmd *cobra.Command, inputPath string, verbose bool) (pgjson.ImportConfig, error) {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return pgjson.ImportConfig{}, err
	}

	resolved, err := resolveConnectionFromFlags(importFlags.connectionFlags, projectCfg, verbose)
	if err != nil {
		return pgjson.ImportConfig{}, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, importFlags.timeout)
	if err != nil {
		return pgjson.ImportConfig{}, err
	}

	var defaults config.ImportConfig
	if projectCfg != nil {
		defaults = projectCfg.Import
	}

	cfg := pgjson.ImportConfig{
		InputPath:         inputPath,
		ConnectionString:  resolved.ConnStr,
		Prefix:            firstSet(importFlags.prefix, defaults.Prefix),
		InferenceSchema:   firstSet(importFlags.schema, defaults.Schema),
		TargetSchema:      firstSet(importFlags.targetSchema, defaults.TargetSchema),
		TargetTable:       firstSet(importFlags.table, defaults.Table),
		CleanupOnFailure:  boolFlagOr(cmd, "cleanup-on-failure", importFlags.cleanupOnFailure, config.BoolOr(defaults.CleanupOnFailure, false)),
		SkipValidation:    boolFlagOr(cmd, "no-validate", importFlags.noValidate, !config.BoolOr(defaults.Validate, true)),
		RecordHistory:     !boolFlagOr(cmd, "no-history", importFlags.noHistory, !config.BoolOr(defaults.History, true)),
		Timeout:           timeout,
		Verbose:           verbose,
		AuthMethod:        resolved.ConnConfig.AuthMethod,
		AzureTenantID:     resolved.ConnConfig.AzureTenantID,
		AzureClientID:     resolved.ConnConfig.AzureClientID,
		AzureClientSecret: resolved.ConnConfig.AzureClientSecret,
		AWSRegion:         resolved.ConnConfig.AWSRegion,
		GoogleInstance:    resolved.ConnConfig.GoogleInstance,
	}

	return cfg.WithDefaults(), nil
}

func runImport(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := buildImportConfig(cmd, args[0], verbose)
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext(cfg.Timeout, "import")
	defer cancel()

	factory := func(logger pgjson.Logger) pgjson.ConnectorFactory {
		return func(c *pgjson.ConnectionConfig) (pgjson.Connector, error) {
			return db.NewConnector(c, logger)
		}
	}

	var result *pgjson.ImportResult
	if tui.IsInteractive() {
		title := "Importing " + filepath.Base(cfg.InputPath)
		err = tui.RunWithProgress(ctx, title, pgjson.Steps, verbose, func(ctx context.Context, r *tui.Reporter) error {
			var importErr error
			result, importErr = importer.NewService(factory(r), catalog.New(), r, r).Import(ctx, cfg)
			return importErr
		})
	} else {
		logger := logging.NewConsoleLogger(verbose)
		svc := importer.NewService(factory(logger), catalog.New(), logger, logging.NewStepReporter(logger))
		result, err = svc.Import(ctx, cfg)
	}

	if result != nil && result.TargetTable.Name != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.TargetTable)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// interruptibleContext returns a context bounded by timeout and cancelled on
// SIGINT or SIGTERM.
func interruptibleContext(timeout time.Duration, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling %s...\n", operation)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFlagOr returns the flag value when it was given on the command line and
// fallback otherwise.
func boolFlagOr(cmd *cobra.Command, name string, value, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		return value
	}
	return fallback
}
