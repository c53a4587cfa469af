package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgjson/internal/logging"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// GoogleCloudSQLConnector dials Cloud SQL through the Cloud SQL Go Connector
// with IAM database authentication.
//
// It implements io.Closer: call Close after the pool is closed to release the
// dialer.
type GoogleCloudSQLConnector struct {
	config *pgjson.ConnectionConfig
	logger pgjson.Logger
	dialer *cloudsqlconn.Dialer
}

func NewGoogleCloudSQLConnector(config *pgjson.ConnectionConfig, logger pgjson.Logger) *GoogleCloudSQLConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &GoogleCloudSQLConnector{config: config, logger: logger}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	instance := c.config.GoogleInstance
	c.logger.Verbose("Dialing Cloud SQL instance %s as %q", instance, c.config.Username)

	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", pgjson.ErrConnectionFailed, err)
	}

	// TLS is handled by the dialer.
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", instance, c.config.Username, c.config.Database)
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instance)
	}
	configurePool(poolConfig, c.logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: %w", pgjson.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to ping Cloud SQL instance %s: %w", pgjson.ErrConnectionFailed, instance, err)
	}

	c.dialer = dialer
	return pool, nil
}

func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
