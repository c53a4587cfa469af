package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgjson/internal/ndjson"
	"github.com/vvka-141/pgjson/internal/tui"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var keysCmd = &cobra.Command{
	Use:   "keys <file>",
	Short: "List the top-level keys of a newline-delimited JSON file",
	Long: `List the columns an import of <file> would create.

The file is read locally, no database connection is made. Each distinct
top-level key is printed with the number of records containing it, sorted
by key. Records lacking a key would get NULL in that column.

Output is tab-separated unless stderr and stdin are a terminal.

Examples:
  pgjson keys ./events.ndjson
  pgjson keys ./events.ndjson | cut -f1`,
	Args:              RequireInputFile,
	ValidArgsFunction: completeInputFiles,
	RunE:              runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, args []string) error {
	keys, stats, err := probeFile(args[0])
	if err != nil {
		return err
	}
	writeKeys(cmd.OutOrStdout(), keys, tui.IsInteractive())
	fmt.Fprintf(cmd.ErrOrStderr(), "%d key(s) in %d record(s), %d blank line(s) skipped\n",
		len(keys), stats.Records, stats.BlankLines)
	return nil
}

func probeFile(path string) ([]ndjson.KeyCount, ndjson.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ndjson.Stats{}, fmt.Errorf("failed to open %s: %w: %w", path, pgjson.ErrFileNotFound, err)
	}
	defer f.Close()

	keys, stats, err := ndjson.ProbeKeys(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return keys, stats, nil
}

func writeKeys(w io.Writer, keys []ndjson.KeyCount, pretty bool) {
	if pretty {
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k.Key, strconv.Itoa(k.Records)}
		}
		fmt.Fprintln(w, tui.RenderTable([]string{"KEY", "RECORDS"}, rows))
		return
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%d\n", k.Key, k.Records)
	}
}
