package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/internal/testing/fakedb"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

func TestQualified(t *testing.T) {
	tests := []struct {
		name  string
		table pgjson.TableName
		want  string
	}{
		{"plain", pgjson.TableName{Schema: "s", Name: "t"}, `"s"."t"`},
		{"no schema", pgjson.TableName{Name: "t"}, `"t"`},
		{"quotes", pgjson.TableName{Schema: "s", Name: `my"table`}, `"s"."my""table"`},
		{"spaces and case", pgjson.TableName{Schema: "My Schema", Name: "Select"}, `"My Schema"."Select"`},
		{"semicolon", pgjson.TableName{Schema: "s", Name: "t; DROP TABLE x"}, `"s"."t; DROP TABLE x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.Qualified(tt.table))
		})
	}
}

func TestEnsureSchema_AlreadyExists(t *testing.T) {
	conn := &fakedb.Conn{QueryRowFunc: func(string, []any) pgx.Row { return fakedb.RowOf(true) }}

	created, err := catalog.New().EnsureSchema(context.Background(), conn, "s")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, conn.Executed("CREATE SCHEMA"))
	assert.False(t, conn.Executed("BEGIN"))
}

func TestEnsureSchema_Creates(t *testing.T) {
	var args []any
	conn := &fakedb.Conn{QueryRowFunc: func(_ string, a []any) pgx.Row {
		args = a
		return fakedb.RowOf(false)
	}}

	created, err := catalog.New().EnsureSchema(context.Background(), conn, `odd "schema"`)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []any{`odd "schema"`}, args)
	assert.True(t, conn.Executed(`CREATE SCHEMA IF NOT EXISTS "odd ""schema"""`))
	assert.Equal(t, 1, conn.Commits())
}

func TestEnsureSchema_ConcurrentCreatorIsNotAnError(t *testing.T) {
	conn := &fakedb.Conn{
		QueryRowFunc: func(string, []any) pgx.Row { return fakedb.RowOf(false) },
		ExecFunc: func(string, []any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fakedb.PgError("23505", "duplicate key value violates unique constraint")
		},
	}

	created, err := catalog.New().EnsureSchema(context.Background(), conn, "s")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, conn.Rollbacks())
}

func TestEnsureSchema_Errors(t *testing.T) {
	boom := errors.New("boom")

	lookup := &fakedb.Conn{QueryRowFunc: func(string, []any) pgx.Row { return fakedb.ErrRow(boom) }}
	_, err := catalog.New().EnsureSchema(context.Background(), lookup, "s")
	assert.ErrorIs(t, err, boom)

	begin := &fakedb.Conn{
		QueryRowFunc: func(string, []any) pgx.Row { return fakedb.RowOf(false) },
		BeginErr:     boom,
	}
	_, err = catalog.New().EnsureSchema(context.Background(), begin, "s")
	assert.ErrorIs(t, err, boom)

	denied := fakedb.PgError("42501", "permission denied for database")
	create := &fakedb.Conn{
		QueryRowFunc: func(string, []any) pgx.Row { return fakedb.RowOf(false) },
		ExecFunc:     func(string, []any) (pgconn.CommandTag, error) { return pgconn.CommandTag{}, denied },
	}
	_, err = catalog.New().EnsureSchema(context.Background(), create, "s")
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 1, create.Rollbacks())
}

func TestListTables(t *testing.T) {
	conn := &fakedb.Conn{QueryRowFunc: func(sql string, a []any) pgx.Row {
		assert.True(t, strings.Contains(sql, "left(c.relname"))
		assert.Equal(t, []any{"s", "mathesar_temp_table_"}, a)
		return fakedb.RowOf([]string{"mathesar_temp_table_1", "mathesar_temp_table_2"})
	}}

	tables, err := catalog.New().ListTables(context.Background(), conn, "s", "mathesar_temp_table_")
	require.NoError(t, err)
	assert.Equal(t, []pgjson.TableName{
		{Schema: "s", Name: "mathesar_temp_table_1"},
		{Schema: "s", Name: "mathesar_temp_table_2"},
	}, tables)
}

func TestListTables_Empty(t *testing.T) {
	conn := &fakedb.Conn{QueryRowFunc: func(string, []any) pgx.Row { return fakedb.RowOf([]string{}) }}

	tables, err := catalog.New().ListTables(context.Background(), conn, "s", "p_")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestDropTable(t *testing.T) {
	conn := &fakedb.Conn{}
	require.NoError(t, catalog.New().DropTable(context.Background(), conn, pgjson.TableName{Schema: "s", Name: "t"}))
	assert.Equal(t, []string{`DROP TABLE "s"."t"`}, conn.Statements())

	missing := fakedb.PgError("42P01", `table "t" does not exist`)
	failing := &fakedb.Conn{ExecFunc: func(string, []any) (pgconn.CommandTag, error) { return pgconn.CommandTag{}, missing }}
	err := catalog.New().DropTable(context.Background(), failing, pgjson.TableName{Schema: "s", Name: "t"})
	assert.ErrorIs(t, err, missing)
}
