package importer

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// recordHistory appends res to <inference schema>.<prefix>import_log,
// creating the table on first use.
func (s *Service) recordHistory(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig, res *pgjson.ImportResult) (string, error) {
	logTable := pgjson.TableName{Schema: cfg.InferenceSchema, Name: cfg.ImportLogTable()}
	qualified := catalog.Qualified(logTable)

	if _, err := conn.Exec(ctx, fmt.Sprintf(sqlCreateImportLog, qualified)); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", logTable, err)
	}

	_, err := conn.Exec(ctx, fmt.Sprintf(sqlInsertImportLog, qualified),
		res.RunID.String(),
		res.InputPath,
		res.Fingerprint,
		res.StagingTable.String(),
		res.TargetTable.String(),
		len(res.Columns),
		res.RowsStaged,
		res.RowsLoaded,
		res.StartedAt,
		res.FinishedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", logTable, err)
	}
	return "run " + res.RunID.String(), nil
}
