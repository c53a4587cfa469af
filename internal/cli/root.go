package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgjson/internal/config"
)

const banner = `               _
  _ __   __ _ (_)___  ___  _ __
 | '_ \ / _` + "`" + ` || / __|/ _ \| '_ \
 | |_) | (_| || \__ \ (_) | | | |
 | .__/ \__, |/ |___/\___/|_| |_|
 |_|    |___/__/`

var rootCmd = &cobra.Command{
	Use:   "pgjson",
	Short: "Flatten newline-delimited JSON into a PostgreSQL table",
	Long: banner + `

pgjson stages a newline-delimited JSON file into a jsonb table with COPY,
discovers the top-level keys of its objects, creates a table with one text
column per key and fills it with a single INSERT ... SELECT.

Every value is stored as text. Nested objects and arrays are kept as their
JSON text. Absent keys become NULL.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - User denied cleanup approval
  13 - SQL execution failed
  14 - Input file not found
  15 - Input line is not a JSON object
  16 - Table or column name cannot be used
  17 - Database rejected the data`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgjson")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the project configuration file")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// getConfigPath returns --config, falling back to the default location.
func getConfigPath(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return config.DefaultPath
	}
	return path
}
