package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgjson/internal/logging"
	"github.com/vvka-141/pgjson/internal/testing/fakedb"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var testNow = time.Unix(1700000000, 0)

const (
	testStaging = `"mathesar_inference_schema"."mathesar_temp_table_1700000000"`
	testTarget  = `"mathesar_inference_schema"."mathesar_table_1700000000"`
)

// fakeCatalog is an in-memory pgjson.Catalog.
type fakeCatalog struct {
	mu        sync.Mutex
	schemas   map[string]bool
	tables    []pgjson.TableName
	ensured   []string
	dropped   []pgjson.TableName
	ensureErr error
	dropErr   error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{schemas: map[string]bool{}}
}

func (c *fakeCatalog) SchemaExists(_ context.Context, _ pgjson.DBConnection, schema string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schemas[schema], nil
}

func (c *fakeCatalog) EnsureSchema(_ context.Context, _ pgjson.DBConnection, schema string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensureErr != nil {
		return false, c.ensureErr
	}
	c.ensured = append(c.ensured, schema)
	if c.schemas[schema] {
		return false, nil
	}
	c.schemas[schema] = true
	return true, nil
}

func (c *fakeCatalog) ListTables(_ context.Context, _ pgjson.DBConnection, schema, prefix string) ([]pgjson.TableName, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []pgjson.TableName
	for _, t := range c.tables {
		if t.Schema == schema && strings.HasPrefix(t.Name, prefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *fakeCatalog) DropTable(_ context.Context, _ pgjson.DBConnection, table pgjson.TableName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropErr != nil {
		return c.dropErr
	}
	c.dropped = append(c.dropped, table)
	return nil
}

func (c *fakeCatalog) Dropped() []pgjson.TableName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pgjson.TableName(nil), c.dropped...)
}

// recordingProgress captures step events as "start <step>", "done <step>", "fail <step>".
type recordingProgress struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingProgress) StepStarted(step pgjson.Step) { p.add("start " + step.String()) }
func (p *recordingProgress) StepCompleted(step pgjson.Step, _ string) {
	p.add("done " + step.String())
}
func (p *recordingProgress) StepFailed(step pgjson.Step, _ error) { p.add("fail " + step.String()) }

func (p *recordingProgress) add(e string) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingProgress) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// failingConnector fails every Connect.
type failingConnector struct{ err error }

func (c failingConnector) Connect(context.Context) (*pgxpool.Pool, error) { return nil, c.err }

type harness struct {
	svc      *Service
	conn     *fakedb.Conn
	catalog  *fakeCatalog
	progress *recordingProgress
	dials    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		conn:     &fakedb.Conn{},
		catalog:  newFakeCatalog(),
		progress: &recordingProgress{},
	}
	factory := func(*pgjson.ConnectionConfig) (pgjson.Connector, error) {
		h.dials++
		return failingConnector{err: fmt.Errorf("%w: dial tcp: connection refused", pgjson.ErrConnectionFailed)}, nil
	}
	h.svc = NewService(factory, h.catalog, logging.NewNullLogger(), h.progress)
	h.svc.now = func() time.Time { return testNow }
	h.svc.suffix = func() string { return "deadbeef" }

	h.conn.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
		if strings.HasPrefix(sql, "INSERT INTO "+testTarget) {
			return pgconn.NewCommandTag("INSERT 0 2"), nil
		}
		return pgconn.NewCommandTag(""), nil
	}
	h.conn.QueryRowFunc = keysRow("a", "b")
	return h
}

func keysRow(keys ...string) func(string, []any) pgx.Row {
	return func(string, []any) pgx.Row {
		return fakedb.RowOf(keys)
	}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(path string) pgjson.ImportConfig {
	return pgjson.ImportConfig{
		InputPath:        path,
		ConnectionString: "postgresql://postgres@localhost:5432/postgres",
	}.WithDefaults()
}

func requireKind(t *testing.T, err error, step pgjson.Step, kind error) *pgjson.StepError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var se *pgjson.StepError
	require.True(t, errors.As(err, &se), "expected *pgjson.StepError, got %T", err)
	require.Equal(t, step, se.Step)
	return se
}
