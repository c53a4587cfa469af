package pgjson

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection is the session surface the importer and catalog need.
// *pgxpool.Conn, *pgxpool.Pool, *pgx.Conn and pgx.Tx all satisfy it, so the
// same code runs on a dedicated connection or inside a transaction.
type DBConnection interface {
	// Exec executes a statement without returning any rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until Row's Scan method is called.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// CopyFrom streams rows into a table using the COPY protocol.
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)

	// Begin starts a transaction (a savepoint when called on a pgx.Tx).
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Catalog performs the schema and table bookkeeping of an import.
type Catalog interface {
	// SchemaExists reports whether a schema with the given name exists.
	SchemaExists(ctx context.Context, conn DBConnection, schema string) (bool, error)

	// EnsureSchema creates the schema when it is absent. It never fails
	// because the schema already exists.
	EnsureSchema(ctx context.Context, conn DBConnection, schema string) (created bool, err error)

	// ListTables returns the tables of a schema whose names start with prefix, sorted.
	ListTables(ctx context.Context, conn DBConnection, schema, prefix string) ([]TableName, error)

	// DropTable drops schema.table. A missing table is an error.
	DropTable(ctx context.Context, conn DBConnection, table TableName) error
}
