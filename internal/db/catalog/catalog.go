package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

const (
	querySchemaExists = "SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)"

	// left() instead of LIKE: prefixes routinely contain '_'.
	queryListTables = `SELECT COALESCE(array_agg(c.relname::text ORDER BY c.relname), '{}')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p') AND left(c.relname, length($2)) = $2`
)

// Catalog implements pgjson.Catalog.
type Catalog struct{}

func New() *Catalog {
	return &Catalog{}
}

func (c *Catalog) SchemaExists(ctx context.Context, conn pgjson.DBConnection, schema string) (bool, error) {
	var exists bool
	if err := conn.QueryRow(ctx, querySchemaExists, schema).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check schema %q: %w", schema, err)
	}
	return exists, nil
}

// EnsureSchema creates schema unless it already exists. The CREATE runs in
// its own transaction with IF NOT EXISTS, so a concurrent creator is not an
// error.
func (c *Catalog) EnsureSchema(ctx context.Context, conn pgjson.DBConnection, schema string) (bool, error) {
	exists, err := c.SchemaExists(ctx, conn, schema)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		// Two sessions racing on IF NOT EXISTS can still collide on the catalog index.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("failed to create schema %q: %w", schema, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit schema %q: %w", schema, err)
	}
	return true, nil
}

func (c *Catalog) ListTables(ctx context.Context, conn pgjson.DBConnection, schema, prefix string) ([]pgjson.TableName, error) {
	var names []string
	if err := conn.QueryRow(ctx, queryListTables, schema, prefix).Scan(&names); err != nil {
		return nil, fmt.Errorf("failed to list tables in %q: %w", schema, err)
	}
	tables := make([]pgjson.TableName, len(names))
	for i, n := range names {
		tables[i] = pgjson.TableName{Schema: schema, Name: n}
	}
	return tables, nil
}

func (c *Catalog) DropTable(ctx context.Context, conn pgjson.DBConnection, table pgjson.TableName) error {
	if _, err := conn.Exec(ctx, "DROP TABLE "+Qualified(table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	return nil
}

// Qualified returns the quoted schema.table form of t.
func Qualified(t pgjson.TableName) string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

var _ pgjson.Catalog = (*Catalog)(nil)
