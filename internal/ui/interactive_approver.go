package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the schema name
// to confirm destructive operations.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates an InteractiveApprover on stdin/stderr.
func NewInteractiveApprover(verbose bool) pgjson.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

// RequestApproval prompts the user to type the schema name to confirm.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, schema string, tables []pgjson.TableName) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to DROP %d table(s) from schema '%s'\n", len(tables), schema)
	writeTableList(a.output, tables, a.verbose)
	fmt.Fprintln(a.output, "This will permanently delete the staged data in these tables!")
	fmt.Fprintf(a.output, "\nTo confirm, type the schema name '%s' and press Enter: ", schema)

	// The read cannot be interrupted; it is abandoned on cancellation.
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil && line == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == schema {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with cleanup...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match schema name '%s'. Operation cancelled.\n", input, schema)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ pgjson.Approver = (*InteractiveApprover)(nil)
