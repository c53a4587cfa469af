package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireInputFile validates that exactly one file argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequireInputFile(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <file>

Usage: %s

Example:
  %s ./events.ndjson -d mydb`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}
