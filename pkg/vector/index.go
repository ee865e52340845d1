package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/metrics"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

const indexFileName = "vectors.json"

// Index is the in-memory vector store with JSON persistence. All operations
// are safe for concurrent use; writers serialize behind one lock while
// searches take a read lock.
type Index struct {
	mu       sync.RWMutex
	records  []Record
	dim      int
	embedder EmbeddingService
	path     string
	logger   logging.Logger
}

// NewIndex opens (or creates) an index rooted at dir. A previously persisted
// index is loaded eagerly; a missing file starts empty.
func NewIndex(dir string, embedder EmbeddingService, logger logging.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	idx := &Index{
		embedder: embedder,
		path:     filepath.Join(dir, indexFileName),
		logger:   logger.With(logging.F("component", "vector_index")),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Index) load() error {
	data, err := os.ReadFile(x.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	x.records = records
	if len(records) > 0 {
		x.dim = len(records[0].Embedding)
	}
	x.logger.Info("index loaded",
		logging.F("vectors", len(records)),
		logging.F("dimension", x.dim))
	return nil
}

// save persists the records under the write lock. The file is written to a
// temp sibling then renamed so readers never observe a partial index.
func (x *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.Marshal(x.records)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(x.path), indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), x.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Add embeds and stores a batch of records. Either the whole batch lands or
// none of it does.
func (x *Index) Add(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, pferrors.NewPipelineError(pferrors.ErrUpstreamDependency, "vector_ingest",
			"embedding batch failed", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range records {
		records[i].Embedding = vectors[i]
		if x.dim == 0 {
			x.dim = len(vectors[i])
		} else if len(vectors[i]) != x.dim {
			return 0, fmt.Errorf("embedding dimension mismatch: index has %d, got %d", x.dim, len(vectors[i]))
		}
	}

	x.records = append(x.records, records...)
	if err := x.save(); err != nil {
		x.records = x.records[:len(x.records)-len(records)]
		return 0, err
	}

	for _, rec := range records {
		metrics.VectorsIngested.WithLabelValues(rec.SegmentType).Inc()
	}
	x.logger.Info("vectors added",
		logging.F("count", len(records)),
		logging.F("meeting_id", records[0].MeetingID))
	return len(records), nil
}

// IngestMeeting derives records from a transcript and its insight bundle,
// embeds them, and stores them. Transcript text is chunked; agent outputs
// become one record per item with a combined searchable text.
func (x *Index) IngestMeeting(ctx context.Context, meetingID, projectID string, t *transcript.Transcript, bundle *insights.InsightBundle) (int, error) {
	records := deriveRecords(meetingID, projectID, t, bundle)
	return x.Add(ctx, records)
}

func deriveRecords(meetingID, projectID string, t *transcript.Transcript, bundle *insights.InsightBundle) []Record {
	var records []Record

	add := func(segType, text string, ts *float64, idx int, extra map[string]any) {
		if text == "" {
			return
		}
		i := idx
		records = append(records, Record{
			MeetingID:    meetingID,
			ProjectID:    projectID,
			SegmentType:  segType,
			Text:         text,
			Timestamp:    ts,
			SegmentIndex: &i,
			Extra:        extra,
		})
	}

	if t != nil {
		for _, chunk := range t.Chunks(transcript.DefaultChunkSize, transcript.DefaultChunkOverlap) {
			add(SegmentTranscript, chunk.Text, chunk.Timestamp, chunk.Index, nil)
		}
	}

	if bundle == nil {
		return records
	}

	if topics, ok := bundle.Topics.Payload.([]insights.TopicSegment); ok {
		for i, topic := range topics {
			start := topic.Start
			add(SegmentTopic, combine(topic.Topic, topic.Summary), &start, i, map[string]any{
				"topic":       topic.Topic,
				"description": topic.Summary,
			})
		}
	}

	if decisions, ok := bundle.Decisions.Payload.([]insights.Decision); ok {
		for i, d := range decisions {
			add(SegmentDecision, combine(d.Decision, d.Rationale), nil, i, map[string]any{
				"decision":     d.Decision,
				"participants": d.Participants,
				"rationale":    d.Rationale,
			})
		}
	}

	if actions, ok := bundle.ActionItems.Payload.([]insights.ActionItem); ok {
		for i, a := range actions {
			assignee, due := "", ""
			if a.Assignee != nil {
				assignee = *a.Assignee
			}
			if a.Due != nil {
				due = *a.Due
			}
			text := fmt.Sprintf("%s. Assigned to: %s. Deadline: %s", a.Action, assignee, due)
			add(SegmentActionItem, text, nil, i, map[string]any{
				"action":   a.Action,
				"assignee": assignee,
				"deadline": due,
			})
		}
	}

	if summary, ok := bundle.Summary.Payload.(insights.SummaryReport); ok {
		add(SegmentSummary, summary.Summary, nil, 0, nil)
	}

	return records
}

func combine(head, tail string) string {
	if tail == "" {
		return head
	}
	if head == "" {
		return tail
	}
	return head + ". " + tail
}

// DeleteMeeting removes all records for a meeting. It reports whether any
// records were removed.
func (x *Index) DeleteMeeting(meetingID string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.records[:0:0]
	for _, rec := range x.records {
		if rec.MeetingID != meetingID {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(x.records) {
		return false, nil
	}

	removed := len(x.records) - len(kept)
	prev := x.records
	x.records = kept
	if len(kept) == 0 {
		x.dim = 0
	}
	if err := x.save(); err != nil {
		x.records = prev
		return false, err
	}

	x.logger.Info("meeting vectors deleted",
		logging.F("meeting_id", meetingID),
		logging.F("removed", removed))
	return true, nil
}

// CountForMeeting returns the number of records stored for a meeting.
func (x *Index) CountForMeeting(meetingID string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, rec := range x.records {
		if rec.MeetingID == meetingID {
			n++
		}
	}
	return n
}

// Stats summarizes the index contents by meeting, segment type, and project.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	stats := Stats{
		TotalVectors:       len(x.records),
		EmbeddingDimension: x.dim,
		Meetings:           map[string]int{},
		SegmentTypes:       map[string]int{},
		Projects:           map[string]int{},
	}
	for _, rec := range x.records {
		stats.Meetings[rec.MeetingID]++
		stats.SegmentTypes[rec.SegmentType]++
		project := rec.ProjectID
		if project == "" {
			project = "none"
		}
		stats.Projects[project]++
	}
	return stats
}
