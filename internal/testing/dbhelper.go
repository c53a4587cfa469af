// Package testing holds helpers shared by integration tests.
package testing

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgjson/internal/testinfra"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// TestConnEnv overrides the auto-started container.
const TestConnEnv = "PGJSON_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartSimplePostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: PGJSON_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnv); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnv, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// GetTestPool opens a pool closed at the end of the test.
func GetTestPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// UniquePrefix returns an artifact prefix private to this test, so tests
// sharing one server never see each other's schemas. Every schema created
// under it is dropped when the test ends.
func UniquePrefix(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	prefix := "t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10] + "_"
	t.Cleanup(func() {
		DropSchemasWithPrefix(t, pool, prefix)
	})
	return prefix
}

// DropSchemasWithPrefix drops every schema whose name starts with prefix.
func DropSchemasWithPrefix(t *testing.T, pool *pgxpool.Pool, prefix string) {
	t.Helper()

	ctx := context.Background()
	var schemas []string
	err := pool.QueryRow(ctx,
		"SELECT COALESCE(array_agg(nspname::text), '{}') FROM pg_namespace WHERE left(nspname, length($1)) = $1",
		prefix).Scan(&schemas)
	if err != nil {
		t.Logf("Warning: failed to list schemas with prefix %s: %v", prefix, err)
		return
	}
	for _, schema := range schemas {
		if _, err := pool.Exec(ctx, "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE"); err != nil {
			t.Logf("Warning: failed to drop schema %s: %v", schema, err)
		}
	}
}

// TableColumns returns the columns of a table in ordinal order.
func TableColumns(t *testing.T, pool *pgxpool.Pool, table pgjson.TableName) []string {
	t.Helper()

	var columns []string
	err := pool.QueryRow(context.Background(), `
		SELECT COALESCE(array_agg(column_name::text ORDER BY ordinal_position), '{}')
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2`,
		table.Schema, table.Name).Scan(&columns)
	if err != nil {
		t.Fatalf("Failed to read columns of %s: %v", table, err)
	}
	return columns
}

// ColumnTypes returns the distinct data types used by a table's columns.
func ColumnTypes(t *testing.T, pool *pgxpool.Pool, table pgjson.TableName) []string {
	t.Helper()

	var types []string
	err := pool.QueryRow(context.Background(), `
		SELECT COALESCE(array_agg(DISTINCT data_type::text), '{}')
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2`,
		table.Schema, table.Name).Scan(&types)
	if err != nil {
		t.Fatalf("Failed to read column types of %s: %v", table, err)
	}
	return types
}

// TableExists reports whether schema.table is present.
func TableExists(t *testing.T, pool *pgxpool.Pool, table pgjson.TableName) bool {
	t.Helper()

	var exists bool
	err := pool.QueryRow(context.Background(),
		"SELECT to_regclass($1) IS NOT NULL",
		pgx.Identifier{table.Schema, table.Name}.Sanitize()).Scan(&exists)
	if err != nil {
		t.Fatalf("Failed to check table %s: %v", table, err)
	}
	return exists
}

// ListTables returns the tables of schema, sorted.
func ListTables(t *testing.T, pool *pgxpool.Pool, schema string) []string {
	t.Helper()

	var tables []string
	err := pool.QueryRow(context.Background(),
		"SELECT COALESCE(array_agg(tablename::text ORDER BY tablename), '{}') FROM pg_tables WHERE schemaname = $1",
		schema).Scan(&tables)
	if err != nil {
		t.Fatalf("Failed to list tables of %s: %v", schema, err)
	}
	return tables
}

// ForceApprover approves every request.
type ForceApprover struct{}

func (ForceApprover) RequestApproval(context.Context, string, []pgjson.TableName) (bool, error) {
	return true, nil
}

// DenyApprover denies every request.
type DenyApprover struct{}

func (DenyApprover) RequestApproval(context.Context, string, []pgjson.TableName) (bool, error) {
	return false, nil
}
