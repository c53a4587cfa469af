package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgjson/internal/logging"
	"github.com/vvka-141/pgjson/internal/retry"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// TokenBasedConnector authenticates with a token from a TokenProvider
// (AWS IAM, Azure Entra ID). A fresh token is acquired for every attempt.
type TokenBasedConnector struct {
	config        *pgjson.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        pgjson.Logger
	retryExecutor *retry.Executor
}

// NewTokenBasedConnector creates a connector around tokenProvider.
// providerName appears in log and error messages, e.g. "AWS IAM".
func NewTokenBasedConnector(config *pgjson.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger pgjson.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
		retryExecutor: newRetryExecutor(logger),
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Acquiring %s token via %s", c.providerName, c.tokenProvider)

	var pool *pgxpool.Pool
	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}
		if left := time.Until(expiresOn); left < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, left.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		p, err := openPool(ctx, BuildConnectionString(&withToken), c.config, c.logger)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pgjson.ErrConnectionFailed, err)
	}
	return pool, nil
}
