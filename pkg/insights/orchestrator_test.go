package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
)

// fakeCompleter returns canned responses per system prompt, with an optional
// artificial delay.
type fakeCompleter struct {
	delay     time.Duration
	err       error
	calls     int64
	responses map[string]string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, params llm.Params) (*llm.Result, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	text, ok := f.responses[params.SystemPrompt]
	if !ok {
		text = "[]"
	}
	return &llm.Result{Text: text, Provider: "fake"}, nil
}

func goodResponses() map[string]string {
	return map[string]string{
		topicSystem:     `[{"topic": "migration", "start": 0, "end": 9, "summary": "Index migration status."}]`,
		decisionSystem:  `[{"decision": "Ship the new index Friday", "participants": ["Alice"], "rationale": "Migration is ready", "evidence": "We decided to ship"}]`,
		actionSystem:    `[{"action": "Update the runbook", "assignee": "Bob", "due": null, "evidence": "Bob will update the runbook"}]`,
		sentimentSystem: `{"overall": "positive", "segments": [{"sentiment": "positive", "rationale": "progress noted", "start": 0, "end": 4, "text": "Good progress"}]}`,
		summarySystem:   "- Migration on track\n- Ship Friday",
	}
}

func TestOrchestratorAssemblesAllFiveSections(t *testing.T) {
	completer := &fakeCompleter{responses: goodResponses()}
	orch := NewOrchestrator(DefaultAgents(completer), OrchestratorConfig{}, logging.NewNopLogger())

	bundle := orch.Run(context.Background(), "mtg_001", standupTranscript())

	require.NotNil(t, bundle)
	assert.Equal(t, "mtg_001", bundle.MeetingID)
	assert.False(t, bundle.GeneratedAt.IsZero())

	for name, res := range bundle.Results() {
		assert.Equal(t, StatusSuccess, res.Status, "agent %s", name)
		assert.NotNil(t, res.Payload, "agent %s", name)
	}
	assert.Empty(t, bundle.DegradedAgents())

	topics, ok := bundle.Topics.Payload.([]TopicSegment)
	require.True(t, ok)
	require.Len(t, topics, 1)
	assert.Equal(t, "migration", topics[0].Topic)
}

func TestOrchestratorRunsAgentsConcurrently(t *testing.T) {
	// Five agents each sleeping 100ms must finish in far less than 500ms.
	completer := &fakeCompleter{delay: 100 * time.Millisecond, responses: goodResponses()}
	orch := NewOrchestrator(DefaultAgents(completer), OrchestratorConfig{}, logging.NewNopLogger())

	start := time.Now()
	bundle := orch.Run(context.Background(), "mtg_002", standupTranscript())
	elapsed := time.Since(start)

	assert.Empty(t, bundle.DegradedAgents())
	assert.Less(t, elapsed, 350*time.Millisecond, "agents must fan out, not run serially")
}

func TestOrchestratorFallsBackOnProviderFailure(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("connection refused")}
	orch := NewOrchestrator(DefaultAgents(completer), OrchestratorConfig{}, logging.NewNopLogger())

	bundle := orch.Run(context.Background(), "mtg_003", standupTranscript())

	for name, res := range bundle.Results() {
		assert.Equal(t, StatusDegraded, res.Status, "agent %s", name)
		assert.True(t, res.Degraded())
		assert.NotNil(t, res.Payload, "agent %s", name)
		assert.NotEmpty(t, res.Error, "agent %s", name)
	}
	assert.ElementsMatch(t, agentNames, bundle.DegradedAgents())

	// Degraded payloads still carry the schema.
	report, ok := bundle.Sentiment.Payload.(SentimentReport)
	require.True(t, ok)
	assert.NotEmpty(t, report.Overall)
}

func TestOrchestratorFallsBackOnTimeout(t *testing.T) {
	completer := &fakeCompleter{delay: time.Second, responses: goodResponses()}
	orch := NewOrchestrator(DefaultAgents(completer),
		OrchestratorConfig{AgentTimeout: 50 * time.Millisecond}, logging.NewNopLogger())

	start := time.Now()
	bundle := orch.Run(context.Background(), "mtg_004", standupTranscript())
	elapsed := time.Since(start)

	assert.ElementsMatch(t, agentNames, bundle.DegradedAgents())
	// The whole fan-out is bounded by the agent timeout plus fallback cost.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestOrchestratorFallsBackOnMalformedResponse(t *testing.T) {
	responses := goodResponses()
	responses[decisionSystem] = "sure! here are the decisions you asked for"
	completer := &fakeCompleter{responses: responses}
	orch := NewOrchestrator(DefaultAgents(completer), OrchestratorConfig{}, logging.NewNopLogger())

	bundle := orch.Run(context.Background(), "mtg_005", standupTranscript())

	assert.Equal(t, StatusDegraded, bundle.Decisions.Status)
	assert.Equal(t, StatusSuccess, bundle.Topics.Status)
	assert.Equal(t, StatusSuccess, bundle.Summary.Status)
}

func TestBundleSerializesWithFixedKeys(t *testing.T) {
	completer := &fakeCompleter{responses: goodResponses()}
	orch := NewOrchestrator(DefaultAgents(completer), OrchestratorConfig{}, logging.NewNopLogger())
	bundle := orch.Run(context.Background(), "mtg_006", standupTranscript())

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"meeting_id", "generated_at", "topics", "decisions", "action_items", "sentiment", "summary"} {
		assert.Contains(t, decoded, key)
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences(`{"a": 1}`))
}
