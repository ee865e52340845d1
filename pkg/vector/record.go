// Package vector maintains the semantic index over meeting content. Records
// carry their embedding and enough metadata to filter and attribute search
// results; the index persists as JSON next to the rest of the meeting data.
package vector

// Segment types stored in the index.
const (
	SegmentTranscript = "transcript"
	SegmentTopic      = "topic"
	SegmentDecision   = "decision"
	SegmentActionItem = "action_item"
	SegmentSummary    = "summary"
)

// Record is one embedded piece of meeting content.
type Record struct {
	MeetingID   string `json:"meeting_id"`
	ProjectID   string `json:"project_id,omitempty"`
	SegmentType string `json:"segment_type"`
	Text        string `json:"text"`

	// Timestamp is the segment start in seconds, when known.
	Timestamp *float64 `json:"timestamp,omitempty"`

	// SegmentIndex orders records of the same type within a meeting.
	SegmentIndex *int `json:"segment_index,omitempty"`

	// Extra carries agent-specific fields (participants, assignee, deadline).
	Extra map[string]any `json:"additional_data,omitempty"`

	Embedding []float32 `json:"embedding"`
}

// Stats summarizes index contents.
type Stats struct {
	TotalVectors       int            `json:"total_vectors"`
	EmbeddingDimension int            `json:"embedding_dimension"`
	Meetings           map[string]int `json:"meetings"`
	SegmentTypes       map[string]int `json:"segment_types"`
	Projects           map[string]int `json:"projects"`
}
