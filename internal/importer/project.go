package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// discoverKeys returns the distinct top-level keys of the staged objects,
// sorted. A staged scalar or array makes the server fail with 22023. No rows,
// or only empty objects, give an empty slice.
func (s *Service) discoverKeys(ctx context.Context, conn pgjson.DBConnection, staging pgjson.TableName) ([]string, error) {
	query := fmt.Sprintf(sqlDiscoverKeys, pgx.Identifier{pgjson.StagingColumn}.Sanitize(), catalog.Qualified(staging))

	var keys []string
	if err := conn.QueryRow(ctx, query).Scan(&keys); err != nil {
		return nil, fmt.Errorf("failed to discover keys in %s: %w", staging, err)
	}
	return keys, nil
}

// createTarget reserves the target table inside tx with one text column per
// key. An empty key set creates a table without columns.
func (s *Service) createTarget(ctx context.Context, tx pgx.Tx, cfg pgjson.ImportConfig, keys []string) (pgjson.TableName, error) {
	if err := checkColumnNames(keys); err != nil {
		return pgjson.TableName{}, err
	}

	base, explicit := cfg.TargetTable, cfg.TargetTable != ""
	if !explicit {
		base = s.timeName(cfg.Prefix, pgjson.TargetTableInfix)
	}

	defs := columnDefinitions(keys)
	return s.reserveTable(ctx, tx, cfg.TargetSchema, base, explicit, func(qualified string) string {
		return fmt.Sprintf(sqlCreateTarget, qualified, defs)
	})
}

// project copies every staged row into target inside tx.
func (s *Service) project(ctx context.Context, tx pgx.Tx, staging, target pgjson.TableName, keys []string) (int64, error) {
	query, args := projectionQuery(staging, target, keys)
	s.logger.Verbose("Projecting %d keys: %s", len(keys), query)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s from %s: %w", target, staging, err)
	}
	return tag.RowsAffected(), nil
}

func columnDefinitions(keys []string) string {
	defs := make([]string, len(keys))
	for i, key := range keys {
		defs[i] = pgx.Identifier{key}.Sanitize() + " text"
	}
	return strings.Join(defs, ", ")
}

// projectionQuery builds
//
//	INSERT INTO target ("k1", "k2") SELECT "data"->>$1::text, "data"->>$2::text FROM staging
//
// with the keys as parameters. Without keys it is INSERT INTO target SELECT
// FROM staging, which still inserts one row per staged record.
func projectionQuery(staging, target pgjson.TableName, keys []string) (string, []any) {
	if len(keys) == 0 {
		return fmt.Sprintf(sqlProjectNoColumns, catalog.Qualified(target), catalog.Qualified(staging)), nil
	}
	data := pgx.Identifier{pgjson.StagingColumn}.Sanitize()
	columns := make([]string, len(keys))
	values := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		columns[i] = pgx.Identifier{key}.Sanitize()
		values[i] = fmt.Sprintf("%s->>$%d::text", data, i+1)
		args[i] = key
	}
	query := fmt.Sprintf(sqlProject,
		catalog.Qualified(target),
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
		catalog.Qualified(staging))
	return query, args
}
