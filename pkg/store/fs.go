// Package store persists pipeline results. The filesystem store is the
// default backend and mirrors the per-meeting directory layout used for
// uploads; Postgres and Redis backends cover shared deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
)

const resultsFileName = "results.json"

// FSStore keeps one directory per meeting under a storage root.
type FSStore struct {
	root   string
	logger logging.Logger
}

// NewFSStore creates a filesystem store rooted at dir.
func NewFSStore(dir string, logger logging.Logger) *FSStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FSStore{
		root:   dir,
		logger: logger.With(logging.F("component", "fs_store")),
	}
}

func (s *FSStore) resultsPath(meetingID string) string {
	return filepath.Join(s.root, meetingID, resultsFileName)
}

// SaveResult writes the result as JSON. The file is written to a temp
// sibling then renamed, so a concurrent reader never sees a partial file.
func (s *FSStore) SaveResult(_ context.Context, result *pipeline.Result) error {
	if result == nil || result.MeetingID == "" {
		return fmt.Errorf("store: %w: result requires a meeting id", pferrors.ErrValidation)
	}

	dir := filepath.Join(s.root, result.MeetingID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create meeting dir: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tmp, err := os.CreateTemp(dir, resultsFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp result: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close result: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.resultsPath(result.MeetingID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace result: %w", err)
	}

	s.logger.Info("result saved", logging.F("meeting_id", result.MeetingID))
	return nil
}

// LoadResult reads one meeting's result.
func (s *FSStore) LoadResult(_ context.Context, meetingID string) (*pipeline.Result, error) {
	data, err := os.ReadFile(s.resultsPath(meetingID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}

	var result pipeline.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

// DeleteMeeting removes a meeting's directory and everything in it.
func (s *FSStore) DeleteMeeting(_ context.Context, meetingID string) error {
	dir := filepath.Join(s.root, meetingID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	return os.RemoveAll(dir)
}

// ListMeetings returns meeting ids that have stored results.
func (s *FSStore) ListMeetings(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.resultsPath(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
