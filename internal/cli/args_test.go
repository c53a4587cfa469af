package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRequireInputFile(t *testing.T) {
	cmd := &cobra.Command{
		Use: "import <file>",
	}

	t.Run("returns error when no args", func(t *testing.T) {
		err := RequireInputFile(cmd, []string{})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "missing required argument: <file>") {
			t.Errorf("expected error to contain 'missing required argument: <file>', got: %s", err.Error())
		}
		if !strings.Contains(err.Error(), "Example:") {
			t.Errorf("expected error to contain 'Example:', got: %s", err.Error())
		}
	})

	t.Run("returns nil when arg provided", func(t *testing.T) {
		err := RequireInputFile(cmd, []string{"./events.ndjson"})
		if err != nil {
			t.Errorf("expected nil, got: %v", err)
		}
	})

	t.Run("returns error when too many args", func(t *testing.T) {
		err := RequireInputFile(cmd, []string{"a", "b"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "accepts 1 arg") {
			t.Errorf("expected error to contain 'accepts 1 arg', got: %s", err.Error())
		}
	})
}
