package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// Cleaner removes staging tables left behind by failed imports.
type Cleaner struct {
	catalog  pgjson.Catalog
	approver pgjson.Approver
	logger   pgjson.Logger
}

// CleanupResult lists what a cleanup found and what it dropped.
type CleanupResult struct {
	Found   []pgjson.TableName
	Dropped []pgjson.TableName
}

func NewCleaner(catalog pgjson.Catalog, approver pgjson.Approver, logger pgjson.Logger) *Cleaner {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Cleaner{catalog: catalog, approver: approver, logger: logger}
}

// Clean drops the tables of schema whose names start with prefix, after
// approval. With dryRun it only lists them. Tables that fail to drop are
// reported together and do not stop the others.
func (c *Cleaner) Clean(ctx context.Context, conn pgjson.DBConnection, schema, prefix string, dryRun bool) (*CleanupResult, error) {
	res := &CleanupResult{}

	exists, err := c.catalog.SchemaExists(ctx, conn, schema)
	if err != nil {
		return nil, withKind(err)
	}
	if !exists {
		c.logger.Info("Schema %s does not exist, nothing to clean up", schema)
		return res, nil
	}

	res.Found, err = c.catalog.ListTables(ctx, conn, schema, prefix)
	if err != nil {
		return nil, withKind(err)
	}
	if len(res.Found) == 0 {
		c.logger.Info("No staging tables matching %s* in %s", prefix, schema)
		return res, nil
	}
	c.logger.Verbose("Found %d staging table(s) in %s", len(res.Found), schema)
	if dryRun {
		return res, nil
	}

	approved, err := c.approver.RequestApproval(ctx, schema, res.Found)
	if err != nil {
		return res, fmt.Errorf("approval failed: %w", err)
	}
	if !approved {
		return res, fmt.Errorf("cleanup of %d table(s) in %s: %w", len(res.Found), schema, pgjson.ErrApprovalDenied)
	}

	var errs []error
	for _, t := range res.Found {
		if err := c.catalog.DropTable(ctx, conn, t); err != nil {
			c.logger.Error("Could not drop %s: %v", t, err)
			errs = append(errs, err)
			continue
		}
		res.Dropped = append(res.Dropped, t)
		c.logger.Verbose("Dropped %s", t)
	}
	if len(errs) > 0 {
		return res, withKind(errors.Join(errs...))
	}
	c.logger.Info("✓ Dropped %d staging table(s) from %s", len(res.Dropped), schema)
	return res, nil
}
