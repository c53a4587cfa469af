package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// timeName builds <prefix><infix><unix seconds>.
func (s *Service) timeName(prefix, infix string) string {
	return prefix + infix + strconv.FormatInt(s.now().Unix(), 10)
}

// randomSuffix returns 8 hex characters of a random UUID.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// reserveTable creates schema.base with the DDL produced by ddl. When the
// name is taken and explicit is false, base_<suffix> candidates are tried
// until DefaultReserveAttempts is reached. An explicit name is never altered.
//
// Each attempt runs in its own (sub)transaction so a 42P07 does not poison
// an enclosing transaction.
func (s *Service) reserveTable(
	ctx context.Context,
	conn pgjson.DBConnection,
	schema, base string,
	explicit bool,
	ddl func(qualified string) string,
) (pgjson.TableName, error) {
	attempts := pgjson.DefaultReserveAttempts
	if explicit {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		table := pgjson.TableName{Schema: schema, Name: base}
		if i > 0 {
			table.Name = base + "_" + s.suffix()
		}

		err := execInSubtransaction(ctx, conn, ddl(catalog.Qualified(table)))
		if err == nil {
			return table, nil
		}
		if !isDuplicateTable(err) {
			return pgjson.TableName{}, fmt.Errorf("failed to create table %s: %w", table, err)
		}
		if explicit {
			return pgjson.TableName{}, fmt.Errorf("table %s already exists: %w: %w", table, pgjson.ErrIdentifierConflict, err)
		}
		s.logger.Verbose("Table %s already exists, trying another name", table)
		lastErr = err
	}
	return pgjson.TableName{}, fmt.Errorf("no free name for %s.%s after %d attempts: %w: %w",
		schema, base, attempts, pgjson.ErrIdentifierConflict, lastErr)
}

func execInSubtransaction(ctx context.Context, conn pgjson.DBConnection, sql string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, sql); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isDuplicateTable reports whether err says the relation name is taken. A
// CREATE racing another session's uncommitted CREATE of the same name waits
// for it and then fails on the catalog's unique indexes with 23505.
func isDuplicateTable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P07":
		return true
	case "23505":
		return pgErr.ConstraintName == "pg_type_typname_nsp_index" ||
			pgErr.ConstraintName == "pg_class_relname_nsp_index"
	}
	return false
}

// truncateIdentifier mirrors the server's truncation of identifiers longer
// than MaxIdentifierLength bytes, never splitting a UTF-8 sequence.
func truncateIdentifier(name string) string {
	if len(name) <= pgjson.MaxIdentifierLength {
		return name
	}
	cut := pgjson.MaxIdentifierLength
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// checkColumnNames rejects key sets that cannot become distinct columns.
func checkColumnNames(keys []string) error {
	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		if key == "" {
			return fmt.Errorf("the empty key cannot be a column name: %w", pgjson.ErrIdentifierConflict)
		}
		column := truncateIdentifier(key)
		if prev, ok := seen[column]; ok {
			return fmt.Errorf("keys %q and %q both truncate to column %q: %w", prev, key, column, pgjson.ErrIdentifierConflict)
		}
		seen[column] = key
	}
	return nil
}
