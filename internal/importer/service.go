package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/internal/ndjson"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// abandonTimeout bounds the best-effort drop of a staging table after a failure.
const abandonTimeout = 30 * time.Second

// Service implements pgjson.Importer.
// Thread-Safety: NOT safe for concurrent Import() calls on the same instance
// when a stateful ProgressReporter is used.
type Service struct {
	connectorFactory pgjson.ConnectorFactory
	catalog          pgjson.Catalog
	logger           pgjson.Logger
	progress         pgjson.ProgressReporter

	now    func() time.Time
	suffix func() string
}

var _ pgjson.Importer = (*Service)(nil)

// NewService creates a Service with all dependencies injected.
//
// Panics on nil dependencies: these are wiring mistakes that should fail at
// startup rather than deep inside an import.
func NewService(
	connectorFactory pgjson.ConnectorFactory,
	catalog pgjson.Catalog,
	logger pgjson.Logger,
	progress pgjson.ProgressReporter,
) *Service {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}

	return &Service{
		connectorFactory: connectorFactory,
		catalog:          catalog,
		logger:           logger,
		progress:         progress,
		now:              time.Now,
		suffix:           randomSuffix,
	}
}

// Import runs the whole pipeline. On success the staging table is gone and
// the target table holds one row per input record.
//
// When only the final drop of the staging table fails, the result is
// returned together with the error: the target table exists and is complete.
func (s *Service) Import(ctx context.Context, config pgjson.ImportConfig) (*pgjson.ImportResult, error) {
	cfg := config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connConfig, err := connectionConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := s.runStep(pgjson.StepPreflight, func() (string, error) {
		return s.preflight(cfg)
	}); err != nil {
		return nil, err
	}

	var session *pgjson.Session
	if err := s.runStep(pgjson.StepConnect, func() (string, error) {
		var err error
		session, err = s.connect(ctx, connConfig)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%d/%s", connConfig.Host, connConfig.Port, connConfig.Database), nil
	}); err != nil {
		return nil, err
	}
	defer session.Close() //nolint:errcheck

	return s.run(ctx, session.Conn(), cfg)
}

func connectionConfig(cfg pgjson.ImportConfig) (*pgjson.ConnectionConfig, error) {
	connConfig, err := db.ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", pgjson.ErrInvalidConfig, err)
	}
	connConfig.AuthMethod = cfg.AuthMethod
	connConfig.AzureTenantID = cfg.AzureTenantID
	connConfig.AzureClientID = cfg.AzureClientID
	connConfig.AzureClientSecret = cfg.AzureClientSecret
	connConfig.AWSRegion = cfg.AWSRegion
	connConfig.GoogleInstance = cfg.GoogleInstance
	return connConfig, nil
}

// preflight checks the input locally before anything touches the database.
func (s *Service) preflight(cfg pgjson.ImportConfig) (string, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w: %w", cfg.InputPath, pgjson.ErrFileNotFound, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w: %w", cfg.InputPath, pgjson.ErrFileNotFound, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", cfg.InputPath, pgjson.ErrFileNotFound)
	}

	if cfg.SkipValidation {
		return "validation skipped", nil
	}

	stats, err := ndjson.Validate(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cfg.InputPath, err)
	}
	return fmt.Sprintf("%d records", stats.Records), nil
}

func (s *Service) connect(ctx context.Context, connConfig *pgjson.ConnectionConfig) (*pgjson.Session, error) {
	s.logger.Verbose("Connecting to database '%s'", connConfig.Database)

	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	// One connection for the whole run.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", pgjson.ErrConnectionFailed, err)
	}
	return pgjson.NewSession(pool, conn, connector), nil
}

// run executes every database step on conn.
func (s *Service) run(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig) (*pgjson.ImportResult, error) {
	res := &pgjson.ImportResult{
		RunID:     uuid.New(),
		InputPath: cfg.InputPath,
		StartedAt: s.now(),
	}

	if err := s.load(ctx, conn, cfg, res); err != nil {
		s.abandonStaging(ctx, conn, cfg, res, err)
		return nil, err
	}

	if err := s.runStep(pgjson.StepCleanup, func() (string, error) {
		if err := s.catalog.DropTable(ctx, conn, res.StagingTable); err != nil {
			return "", err
		}
		return "dropped " + res.StagingTable.String(), nil
	}); err != nil {
		res.FinishedAt = s.now()
		return res, err
	}
	res.FinishedAt = s.now()

	if cfg.RecordHistory {
		if err := s.runStep(pgjson.StepRecordHistory, func() (string, error) {
			return s.recordHistory(ctx, conn, cfg, res)
		}); err != nil {
			s.logger.Error("Import history not recorded: %v", err)
		}
	}

	s.logger.Info("✓ Imported %d rows into %s (%d columns)", res.RowsLoaded, res.TargetTable, len(res.Columns))
	return res, nil
}

// load runs the steps between connecting and cleanup. The target table is
// created and filled in one transaction.
func (s *Service) load(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig, res *pgjson.ImportResult) error {
	if err := s.runStep(pgjson.StepEnsureSchema, func() (string, error) {
		return s.ensureSchemas(ctx, conn, cfg)
	}); err != nil {
		return err
	}

	if err := s.runStep(pgjson.StepStage, func() (string, error) {
		return s.stage(ctx, conn, cfg, res)
	}); err != nil {
		return err
	}

	var keys []string
	if err := s.runStep(pgjson.StepDiscoverKeys, func() (string, error) {
		var err error
		keys, err = s.discoverKeys(ctx, conn, res.StagingTable)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d keys", len(keys)), nil
	}); err != nil {
		return err
	}

	var tx pgx.Tx
	defer func() {
		if tx != nil {
			tx.Rollback(ctx) //nolint:errcheck
		}
	}()

	var target pgjson.TableName
	if err := s.runStep(pgjson.StepCreateTarget, func() (string, error) {
		var err error
		if tx, err = conn.Begin(ctx); err != nil {
			return "", fmt.Errorf("failed to begin transaction: %w", err)
		}
		if target, err = s.createTarget(ctx, tx, cfg, keys); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%d columns)", target, len(keys)), nil
	}); err != nil {
		return err
	}

	return s.runStep(pgjson.StepProject, func() (string, error) {
		rows, err := s.project(ctx, tx, res.StagingTable, target, keys)
		if err != nil {
			return "", err
		}
		if err := tx.Commit(ctx); err != nil {
			return "", fmt.Errorf("failed to commit %s: %w", target, err)
		}
		tx = nil

		res.TargetTable = target
		res.Columns = keys
		res.RowsLoaded = rows
		return fmt.Sprintf("%d rows", rows), nil
	})
}

func (s *Service) ensureSchemas(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig) (string, error) {
	schemas := []string{cfg.InferenceSchema}
	if cfg.TargetSchema != cfg.InferenceSchema {
		schemas = append(schemas, cfg.TargetSchema)
	}

	var created []string
	for _, schema := range schemas {
		ok, err := s.catalog.EnsureSchema(ctx, conn, schema)
		if err != nil {
			return "", err
		}
		if ok {
			created = append(created, schema)
			s.logger.Verbose("Created schema %s", schema)
		}
	}
	if len(created) == 0 {
		return "already present", nil
	}
	return fmt.Sprintf("created %v", created), nil
}

// abandonStaging applies the failure policy to a staging table left behind
// by a failed step.
func (s *Service) abandonStaging(ctx context.Context, conn pgjson.DBConnection, cfg pgjson.ImportConfig, res *pgjson.ImportResult, cause error) {
	if res.StagingTable.Name == "" {
		return
	}
	if !cfg.CleanupOnFailure {
		s.logger.Info("Staging table %s retained for inspection", res.StagingTable)
		return
	}
	if errors.Is(cause, pgjson.ErrConnectionFailed) {
		s.logger.Error("Connection lost, staging table %s was not dropped", res.StagingTable)
		return
	}

	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	if err := s.catalog.DropTable(dropCtx, conn, res.StagingTable); err != nil {
		s.logger.Error("Failed to drop staging table %s: %v", res.StagingTable, err)
		return
	}
	s.logger.Verbose("Dropped staging table %s after failure", res.StagingTable)
}

// runStep reports step progress around fn and wraps its error in a
// *pgjson.StepError.
func (s *Service) runStep(step pgjson.Step, fn func() (string, error)) error {
	s.progress.StepStarted(step)
	detail, err := fn()
	if err != nil {
		err = stepError(step, err)
		s.progress.StepFailed(step, err)
		return err
	}
	s.progress.StepCompleted(step, detail)
	return nil
}
