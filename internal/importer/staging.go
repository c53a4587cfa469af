package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgjson/internal/checksum"
	"github.com/vvka-141/pgjson/internal/ndjson"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// recordSource feeds NDJSON records to CopyFrom, one jsonb value per row.
// Records are sent as-is; the server parses them.
type recordSource struct {
	records *ndjson.Reader
}

var _ pgx.CopyFromSource = (*recordSource)(nil)

func newRecordSource(r io.Reader) *recordSource {
	return &recordSource{records: ndjson.NewReader(r)}
}

func (s *recordSource) Next() bool {
	return s.records.Next()
}

func (s *recordSource) Values() ([]any, error) {
	return []any{json.RawMessage(s.records.Bytes())}, nil
}

func (s *recordSource) Err() error {
	return s.records.Err()
}

// stage creates the staging table and copies the input into it. The staging
// table name is stored in res as soon as it exists.
func (s *Service) stage(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig, res *pgjson.ImportResult) (string, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w: %w", cfg.InputPath, pgjson.ErrFileNotFound, err)
	}
	defer f.Close()

	column := pgx.Identifier{pgjson.StagingColumn}.Sanitize()
	staging, err := s.reserveTable(ctx, conn, cfg.InferenceSchema, s.timeName(cfg.Prefix, pgjson.StagingTableInfix), false,
		func(qualified string) string {
			return fmt.Sprintf(sqlCreateStaging, qualified, column)
		})
	if err != nil {
		return "", err
	}
	res.StagingTable = staging
	s.logger.Verbose("Created staging table %s", staging)

	in, fingerprint := checksum.TeeReader(f)
	rows, err := conn.CopyFrom(ctx, pgx.Identifier{staging.Schema, staging.Name}, []string{pgjson.StagingColumn}, newRecordSource(in))
	if err != nil {
		return "", fmt.Errorf("failed to copy %s into %s: %w", cfg.InputPath, staging, err)
	}
	res.RowsStaged = rows
	res.Fingerprint = fingerprint.Sum()

	return fmt.Sprintf("%d rows into %s", rows, staging), nil
}
