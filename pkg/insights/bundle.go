// Package insights runs the five analysis agents over a meeting transcript
// and assembles their outputs into a single bundle. Every agent has a local
// deterministic fallback, so a bundle always carries all five sections even
// when the model tier is down.
package insights

import (
	"time"
)

// Agent result statuses.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded_fallback"
	StatusError    = "error"
)

// AgentResult is the output of one agent run.
type AgentResult struct {
	AgentName string `json:"agent_name"`

	// Status is success when the model produced the payload,
	// degraded_fallback when the local heuristic did.
	Status string `json:"status"`

	Payload   any    `json:"payload"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Degraded reports whether the payload came from the local fallback.
func (r AgentResult) Degraded() bool {
	return r.Status == StatusDegraded
}

// InsightBundle is the complete set of insights for one meeting. All five
// sections are always present regardless of individual agent outcomes.
type InsightBundle struct {
	MeetingID   string    `json:"meeting_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Topics      AgentResult `json:"topics"`
	Decisions   AgentResult `json:"decisions"`
	ActionItems AgentResult `json:"action_items"`
	Sentiment   AgentResult `json:"sentiment"`
	Summary     AgentResult `json:"summary"`
}

// Results returns the five sections keyed by agent name.
func (b *InsightBundle) Results() map[string]AgentResult {
	return map[string]AgentResult{
		AgentTopic:     b.Topics,
		AgentDecision:  b.Decisions,
		AgentAction:    b.ActionItems,
		AgentSentiment: b.Sentiment,
		AgentSummary:   b.Summary,
	}
}

// DegradedAgents lists the agents whose section came from a fallback.
func (b *InsightBundle) DegradedAgents() []string {
	var degraded []string
	for _, name := range agentNames {
		if b.Results()[name].Degraded() {
			degraded = append(degraded, name)
		}
	}
	return degraded
}

// TopicSegment is one coherent discussion segment.
type TopicSegment struct {
	Topic   string  `json:"topic"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Summary string  `json:"summary"`
}

// Decision is one extracted decision with its supporting evidence.
type Decision struct {
	Decision     string   `json:"decision"`
	Participants []string `json:"participants"`
	Rationale    string   `json:"rationale"`
	Evidence     string   `json:"evidence"`
}

// ActionItem is one extracted task. Assignee and Due stay nil when the
// transcript never names them.
type ActionItem struct {
	Action   string  `json:"action"`
	Assignee *string `json:"assignee"`
	Due      *string `json:"due"`
	Evidence string  `json:"evidence"`
}

// SegmentSentiment classifies one transcript segment.
type SegmentSentiment struct {
	Sentiment string  `json:"sentiment"`
	Rationale string  `json:"rationale"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}

// SentimentReport is the sentiment section: per-segment classifications plus
// an overall majority label.
type SentimentReport struct {
	Overall  string             `json:"overall"`
	Segments []SegmentSentiment `json:"segments"`
}

// SummaryReport is the summary section.
type SummaryReport struct {
	Summary string `json:"summary"`
}
