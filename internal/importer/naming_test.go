package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgjson/internal/testing/fakedb"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

func TestRandomSuffix(t *testing.T) {
	a, b := randomSuffix(), randomSuffix()

	assert.Len(t, a, 8)
	assert.Regexp(t, `^[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestTimeName(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "mathesar_temp_table_1700000000", h.svc.timeName("mathesar_", pgjson.StagingTableInfix))
	assert.Equal(t, "x_table_1700000000", h.svc.timeName("x_", pgjson.TargetTableInfix))
}

func TestTruncateIdentifier(t *testing.T) {
	short := "customer_id"
	assert.Equal(t, short, truncateIdentifier(short))

	exact := strings.Repeat("a", 63)
	assert.Equal(t, exact, truncateIdentifier(exact))

	assert.Equal(t, exact, truncateIdentifier(exact+"bcd"))

	// 62 ASCII bytes followed by a 2-byte rune: the rune would straddle byte 63.
	multibyte := strings.Repeat("a", 62) + "é" + "z"
	got := truncateIdentifier(multibyte)
	assert.Equal(t, strings.Repeat("a", 62), got)
	assert.LessOrEqual(t, len(got), pgjson.MaxIdentifierLength)
}

func TestCheckColumnNames(t *testing.T) {
	long := strings.Repeat("x", 63)
	tests := []struct {
		name    string
		keys    []string
		wantErr bool
	}{
		{"plain", []string{"a", "b"}, false},
		{"reserved words and case", []string{"select", "Order", "order", "my key"}, false},
		{"single long key", []string{long + "tail"}, false},
		{"empty key", []string{""}, true},
		{"truncation collision", []string{long + "1", long + "2"}, true},
		{"long key colliding with short", []string{long, long + "!"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkColumnNames(tt.keys)
			if tt.wantErr {
				require.ErrorIs(t, err, pgjson.ErrIdentifierConflict)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProjectionQuery(t *testing.T) {
	staging := pgjson.TableName{Schema: "s", Name: "stage"}
	target := pgjson.TableName{Schema: "t", Name: "Target"}

	query, args := projectionQuery(staging, target, []string{"id", `we"ird`, "select"})

	assert.Equal(t,
		`INSERT INTO "t"."Target" ("id", "we""ird", "select") SELECT "data"->>$1::text, "data"->>$2::text, "data"->>$3::text FROM "s"."stage"`,
		query)
	assert.Equal(t, []any{"id", `we"ird`, "select"}, args)
}

func TestColumnDefinitions(t *testing.T) {
	assert.Equal(t, `"a" text, "B c" text`, columnDefinitions([]string{"a", "B c"}))
}

func TestProjectionQuery_NoKeys(t *testing.T) {
	staging := pgjson.TableName{Schema: "s", Name: "stage"}
	target := pgjson.TableName{Schema: "t", Name: "empty"}

	query, args := projectionQuery(staging, target, nil)

	assert.Equal(t, `INSERT INTO "t"."empty" SELECT FROM "s"."stage"`, query)
	assert.Empty(t, args)
	assert.Equal(t, "", columnDefinitions(nil))
}

func TestIsDuplicateTable(t *testing.T) {
	uniqueViolation := func(constraint string) error {
		pgErr := fakedb.PgError("23505", "duplicate key value violates unique constraint")
		pgErr.ConstraintName = constraint
		return pgErr
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"relation exists", fakedb.PgError("42P07", "relation already exists"), true},
		{"wrapped relation exists", fmt.Errorf("create: %w", fakedb.PgError("42P07", "x")), true},
		{"concurrent create, type index", uniqueViolation("pg_type_typname_nsp_index"), true},
		{"concurrent create, class index", uniqueViolation("pg_class_relname_nsp_index"), true},
		{"unrelated unique violation", uniqueViolation("users_email_key"), false},
		{"other sqlstate", fakedb.PgError("42501", "permission denied"), false},
		{"not a pg error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateTable(tt.err))
		})
	}
}
