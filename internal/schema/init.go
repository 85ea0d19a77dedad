package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yosihaf/wikibook/internal/recorddb"
)

// Initialize applies all schemas to the record database.
// It's safe to call multiple times - existing schemas are skipped.
func Initialize(ctx context.Context, client *recorddb.Client, logger *slog.Logger) error {
	schemas, err := All()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	for _, s := range schemas {
		if err := applySchema(ctx, client, s, logger); err != nil {
			return err
		}
	}

	return nil
}

// applySchema adds a single schema. Returns nil if it already exists.
func applySchema(ctx context.Context, client *recorddb.Client, s Schema, logger *slog.Logger) error {
	err := client.AddSchema(ctx, s.SDL)
	if err != nil {
		if isAlreadyExistsError(err) {
			logger.Info("schema already exists", "name", s.Name)
			return nil
		}
		return fmt.Errorf("failed to add schema %s: %w", s.Name, err)
	}

	logger.Info("schema added", "name", s.Name)
	return nil
}

// isAlreadyExistsError checks if the error indicates the collection already
// exists. The database is accessed over HTTP, so errors come back as
// response body text; string matching is unavoidable here.
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "collection already exists") ||
		strings.Contains(msg, "already exists")
}
