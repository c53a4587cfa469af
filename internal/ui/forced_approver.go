package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the countdown,
// used when the --force flag is provided.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover writing to stderr.
func NewForcedApprover(verbose bool) pgjson.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// RequestApproval lists the tables and approves once the countdown ends.
func (a *ForcedApprover) RequestApproval(ctx context.Context, schema string, tables []pgjson.TableName) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintf(a.output, "DANGER: dropping %d table(s) from schema '%s' without confirmation\n", len(tables), schema)
	writeTableList(a.output, tables, a.verbose)
	fmt.Fprintln(a.output)

	countdownSeconds := int(pgjson.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(time.Second)
		}
	}

	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}
	fmt.Fprintf(a.output, "\r✓ Proceeding with cleanup...                                        \n")
	return true, nil
}

// maxListedTables caps the listing unless verbose.
const maxListedTables = 10

func writeTableList(w io.Writer, tables []pgjson.TableName, verbose bool) {
	for i, t := range tables {
		if !verbose && i == maxListedTables {
			fmt.Fprintf(w, "  ... and %d more (use -v to list all)\n", len(tables)-maxListedTables)
			return
		}
		fmt.Fprintf(w, "  • %s\n", t)
	}
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ pgjson.Approver = (*ForcedApprover)(nil)
