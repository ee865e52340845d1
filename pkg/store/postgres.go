package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
)

// PGStore persists pipeline results in Postgres, one row per meeting with
// the full result as JSONB.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// SaveResult upserts one meeting's result.
func (s *PGStore) SaveResult(ctx context.Context, result *pipeline.Result) error {
	if result == nil || result.MeetingID == "" {
		return fmt.Errorf("store: %w: result requires a meeting id", pferrors.ErrValidation)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO meeting_results (meeting_id, project_id, payload, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, now())
		ON CONFLICT (meeting_id)
		DO UPDATE SET project_id = EXCLUDED.project_id, payload = EXCLUDED.payload, updated_at = now()
	`, result.MeetingID, result.ProjectID, payload)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// LoadResult reads one meeting's result.
func (s *PGStore) LoadResult(ctx context.Context, meetingID string) (*pipeline.Result, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM meeting_results WHERE meeting_id = $1`, meetingID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}

	var result pipeline.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

// DeleteMeeting removes a meeting's row.
func (s *PGStore) DeleteMeeting(ctx context.Context, meetingID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meeting_results WHERE meeting_id = $1`, meetingID)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	return nil
}

// ListMeetings returns meeting ids with stored results, newest first.
func (s *PGStore) ListMeetings(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT meeting_id FROM meeting_results ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan meeting id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
