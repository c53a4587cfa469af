package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/internal/db/catalog"
	"github.com/vvka-141/pgjson/internal/importer"
	"github.com/vvka-141/pgjson/internal/logging"
	testhelpers "github.com/vvka-141/pgjson/internal/testing"
	"github.com/vvka-141/pgjson/internal/testinfra"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

func startMTLS(t *testing.T) (*testinfra.PostgresContainer, *testinfra.CertPaths) {
	t.Helper()
	testhelpers.SkipIfShort(t)

	certs, err := testinfra.GenerateCertificates([]string{"localhost", "127.0.0.1"}, testinfra.PostgresUser)
	require.NoError(t, err)
	paths, err := certs.WriteToDir(t.TempDir())
	require.NoError(t, err)

	ctr, err := testinfra.StartMTLSPostgres(context.Background(), paths)
	if err != nil {
		t.Skipf("Docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })
	return ctr, paths
}

func TestCertificateAuth(t *testing.T) {
	ctr, paths := startMTLS(t)
	ctx := context.Background()
	logger := logging.NewNullLogger()

	cfg, err := db.ResolveConnectionParams(ctr.ConnString,
		&db.GranularConnFlags{SSLCert: paths.ClientCert, SSLKey: paths.ClientKey},
		nil, &db.EnvVars{}, nil)
	require.NoError(t, err)
	assert.Equal(t, pgjson.AuthMethodCertificate, cfg.AuthMethod)

	t.Run("client certificate is accepted", func(t *testing.T) {
		connector, err := db.NewConnector(cfg, logger)
		require.NoError(t, err)
		pool, err := connector.Connect(ctx)
		require.NoError(t, err)
		defer pool.Close()

		var user string
		var ssl bool
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT current_user::text, ssl FROM pg_stat_ssl WHERE pid = pg_backend_pid()").Scan(&user, &ssl))
		assert.Equal(t, testinfra.PostgresUser, user)
		assert.True(t, ssl)
	})

	t.Run("missing certificate is refused", func(t *testing.T) {
		bare, err := db.ResolveConnectionParams(ctr.ConnString, nil, nil, &db.EnvVars{}, nil)
		require.NoError(t, err)
		connector, err := db.NewConnector(bare, logger)
		require.NoError(t, err)

		_, err = connector.Connect(ctx)
		require.ErrorIs(t, err, pgjson.ErrConnectionFailed)
	})

	t.Run("import over mTLS", func(t *testing.T) {
		input := filepath.Join(t.TempDir(), "input.ndjson")
		require.NoError(t, os.WriteFile(input, []byte("{\"id\": 1, \"tag\": \"tls\"}\n"), 0o644))

		factory := func(c *pgjson.ConnectionConfig) (pgjson.Connector, error) {
			return db.NewConnector(c, logger)
		}
		svc := importer.NewService(factory, catalog.New(), logger, logging.NullReporter{})

		res, err := svc.Import(ctx, pgjson.ImportConfig{
			InputPath:        input,
			ConnectionString: db.BuildConnectionString(cfg),
			Prefix:           "mtls_",
			AuthMethod:       pgjson.AuthMethodCertificate,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "tag"}, res.Columns)
		assert.Equal(t, int64(1), res.RowsLoaded)
	})
}
