// Package pipeline coordinates meeting processing: the tracker owns job
// state and progress, the runner drives a recording through transcription,
// insight generation, storage, and indexing.
package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
)

// Status is a processing job state.
type Status string

// Job states, in pipeline order. Error is reachable from any active state.
const (
	StatusUploading          Status = "uploading"
	StatusExtractingAudio    Status = "extracting_audio"
	StatusTranscribing       Status = "transcribing"
	StatusDiarizing          Status = "diarizing"
	StatusSavingTranscript   Status = "saving_transcript"
	StatusGeneratingInsights Status = "generating_insights"
	StatusSavingResults      Status = "saving_results"
	StatusCompleted          Status = "completed"
	StatusError              Status = "error"
)

// statusRank orders the states. Transitions move strictly forward, so
// optional stages (audio extraction, diarization) can be skipped.
var statusRank = map[Status]int{
	StatusUploading:          0,
	StatusExtractingAudio:    1,
	StatusTranscribing:       2,
	StatusDiarizing:          3,
	StatusSavingTranscript:   4,
	StatusGeneratingInsights: 5,
	StatusSavingResults:      6,
	StatusCompleted:          7,
}

// Active reports whether the status represents in-flight processing.
func (s Status) Active() bool {
	_, known := statusRank[s]
	return known && s != StatusCompleted
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// validTransition enforces the job state machine edges: strictly forward
// through the status order, or to error from any active state.
func validTransition(from, to Status) bool {
	if !from.Active() {
		return false
	}
	if to == StatusError {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Job is one meeting's processing state.
type Job struct {
	MeetingID string    `json:"meeting_id"`
	UUID      string    `json:"uuid"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker holds all known jobs behind one lock. Status polling reads a
// snapshot; writers go through the transition checks.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger logging.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Tracker{
		jobs:   make(map[string]*Job),
		logger: logger.With(logging.F("component", "tracker")),
	}
}

// NewMeetingID derives a meeting id from the source filename plus the upload
// time, with a counter suffix when taken says the id already exists. The
// second return value is a fresh UUID for internal references.
func NewMeetingID(filename string, now time.Time, taken func(string) bool) (string, string) {
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune('_')
		}
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		sanitized = "meeting"
	}

	id := fmt.Sprintf("%s_%s", sanitized, now.Format("20060102_150405"))
	if taken != nil {
		candidate := id
		for counter := 1; taken(candidate); counter++ {
			candidate = fmt.Sprintf("%s_%d", id, counter)
		}
		id = candidate
	}
	return id, uuid.NewString()
}

// Create registers a new job in the uploading state. A meeting with an
// active job cannot be created again; a terminal job may be reprocessed.
func (t *Tracker) Create(meetingID, jobUUID string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.jobs[meetingID]; ok && existing.Status.Active() {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrAlreadyProcessing)
	}

	now := time.Now().UTC()
	job := &Job{
		MeetingID: meetingID,
		UUID:      jobUUID,
		Status:    StatusUploading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.jobs[meetingID] = job

	t.logger.Info("job created", logging.F("meeting_id", meetingID))
	snapshot := *job
	return &snapshot, nil
}

// Advance moves a job to the next status. Progress is monotonic: a lower
// value than the current one is ignored rather than applied.
func (t *Tracker) Advance(meetingID string, status Status, progress float64, stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	// Terminal jobs are frozen: even a same-status call may not touch
	// progress or stage.
	if !job.Status.Active() || (status != job.Status && !validTransition(job.Status, status)) {
		return fmt.Errorf("meeting %s: %w: %s -> %s", meetingID, pferrors.ErrInvalidState, job.Status, status)
	}

	job.Status = status
	if progress > job.Progress {
		job.Progress = progress
	}
	if stage != "" {
		job.Stage = stage
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Progress updates progress and stage within the current status.
func (t *Tracker) Progress(meetingID string, progress float64, stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	if !job.Status.Active() {
		return fmt.Errorf("meeting %s: %w: job is %s", meetingID, pferrors.ErrInvalidState, job.Status)
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	if stage != "" {
		job.Stage = stage
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete moves a job to completed with full progress.
func (t *Tracker) Complete(meetingID string) error {
	if err := t.Advance(meetingID, StatusCompleted, 100, "Processing complete"); err != nil {
		return err
	}
	t.logger.Info("job completed", logging.F("meeting_id", meetingID))
	return nil
}

// Fail moves a job to the error state from any active state. Progress is
// left where it was so callers can see how far the job got.
func (t *Tracker) Fail(meetingID string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("meeting %s: %w: %s -> %s", meetingID, pferrors.ErrInvalidState, job.Status, StatusError)
	}

	job.Status = StatusError
	if cause != nil {
		job.Error = cause.Error()
	}
	job.UpdatedAt = time.Now().UTC()

	t.logger.Error("job failed",
		logging.F("meeting_id", meetingID),
		logging.Err(cause))
	return nil
}

// Get returns a snapshot of one job.
func (t *Tracker) Get(meetingID string) (*Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, pferrors.ErrNotFound)
	}
	snapshot := *job
	return &snapshot, nil
}

// List returns snapshots of all jobs.
func (t *Tracker) List() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// CountByStatus reports job counts keyed by status string. It satisfies the
// metrics collector's JobCounter interface.
func (t *Tracker) CountByStatus() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[string]int)
	for _, job := range t.jobs {
		counts[string(job.Status)]++
	}
	return counts
}
