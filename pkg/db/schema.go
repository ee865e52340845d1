package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full DDL for the results store. Statements are idempotent so
// EnsureSchema can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS meeting_results (
	meeting_id  text PRIMARY KEY,
	project_id  text,
	payload     jsonb NOT NULL,
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS meeting_results_project_idx
	ON meeting_results (project_id)
	WHERE project_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS meeting_results_updated_idx
	ON meeting_results (updated_at DESC);
`

// EnsureSchema creates the results tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
