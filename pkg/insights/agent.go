package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

// Agent names, fixed across the bundle schema.
const (
	AgentTopic     = "topic"
	AgentDecision  = "decision"
	AgentAction    = "action_item"
	AgentSentiment = "sentiment"
	AgentSummary   = "summary"
)

var agentNames = []string{AgentTopic, AgentDecision, AgentAction, AgentSentiment, AgentSummary}

// Completer is the slice of the LLM client the agents need.
type Completer interface {
	Complete(ctx context.Context, prompt string, params llm.Params) (*llm.Result, error)
}

// Agent analyzes a transcript and produces one section's payload. A returned
// error signals the orchestrator to substitute the agent's local fallback.
type Agent interface {
	Name() string
	Run(ctx context.Context, t *transcript.Transcript) (any, error)
	Fallback(t *transcript.Transcript) any
}

// System and task prompts per agent.
const (
	topicSystem = "You segment meetings into coherent topics with timestamps."
	topicPrompt = `Given a meeting transcript, identify topic segments.
Return a JSON array of objects with fields: topic (string), start (seconds), end (seconds), summary (string).
Keep 3-10 topics depending on length. Return only JSON.`

	decisionSystem = "You extract decisions from meetings with participants and rationale."
	decisionPrompt = `Extract decisions from the meeting transcript.
Return a JSON array of objects: decision (string), participants (array of strings), rationale (string), evidence (short quote).
Only include clear decisions; omit speculative statements. Return only JSON.`

	actionSystem = "You extract actionable tasks from meetings."
	actionPrompt = `Extract action items from the meeting transcript.
Return a JSON array of objects: action (string), assignee (string or null), due (string or null), evidence (short quote).
Prefer explicit assignments; if no assignee or due date is mentioned, set the field to null. Return only JSON.`

	sentimentSystem = "You assess sentiment per segment."
	sentimentPrompt = `Classify sentiment for each transcript segment as one of [positive, neutral, negative] and give a brief rationale.
Return a JSON object with fields: overall (string), segments (array of objects: sentiment, rationale, start, end, text).
Return only JSON.`

	summarySystem = "You summarize meetings concisely."
	summaryPrompt = `Provide a concise bullet summary under 120 words. Include key decisions and action items if present.
Return plain text bullets.`
)

// buildPrompt joins the task instructions with the transcript body.
func buildPrompt(task string, t *transcript.Transcript) string {
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nTranscript:\n")
	for _, seg := range t.Segments {
		fmt.Fprintf(&b, "[%.1f-%.1f] %s: %s\n", seg.Start, seg.End, seg.Speaker, seg.Text)
	}
	if len(t.Segments) == 0 {
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// decodeStrict unmarshals a model response into out, treating any failure as
// a malformed response.
func decodeStrict(text string, out any) error {
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

type topicAgent struct {
	llm    Completer
	params llm.Params
}

func (a *topicAgent) Name() string { return AgentTopic }

func (a *topicAgent) Run(ctx context.Context, t *transcript.Transcript) (any, error) {
	params := a.params
	params.SystemPrompt = topicSystem
	res, err := a.llm.Complete(ctx, buildPrompt(topicPrompt, t), params)
	if err != nil {
		return nil, err
	}
	var topics []TopicSegment
	if err := decodeStrict(res.Text, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

func (a *topicAgent) Fallback(t *transcript.Transcript) any {
	return fallbackTopics(t)
}

type decisionAgent struct {
	llm    Completer
	params llm.Params
}

func (a *decisionAgent) Name() string { return AgentDecision }

func (a *decisionAgent) Run(ctx context.Context, t *transcript.Transcript) (any, error) {
	params := a.params
	params.SystemPrompt = decisionSystem
	res, err := a.llm.Complete(ctx, buildPrompt(decisionPrompt, t), params)
	if err != nil {
		return nil, err
	}
	var decisions []Decision
	if err := decodeStrict(res.Text, &decisions); err != nil {
		return nil, err
	}
	return decisions, nil
}

func (a *decisionAgent) Fallback(t *transcript.Transcript) any {
	return fallbackDecisions(t)
}

type actionAgent struct {
	llm    Completer
	params llm.Params
}

func (a *actionAgent) Name() string { return AgentAction }

func (a *actionAgent) Run(ctx context.Context, t *transcript.Transcript) (any, error) {
	params := a.params
	params.SystemPrompt = actionSystem
	res, err := a.llm.Complete(ctx, buildPrompt(actionPrompt, t), params)
	if err != nil {
		return nil, err
	}
	var actions []ActionItem
	if err := decodeStrict(res.Text, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func (a *actionAgent) Fallback(t *transcript.Transcript) any {
	return fallbackActions(t)
}

type sentimentAgent struct {
	llm    Completer
	params llm.Params
}

func (a *sentimentAgent) Name() string { return AgentSentiment }

func (a *sentimentAgent) Run(ctx context.Context, t *transcript.Transcript) (any, error) {
	params := a.params
	params.SystemPrompt = sentimentSystem
	res, err := a.llm.Complete(ctx, buildPrompt(sentimentPrompt, t), params)
	if err != nil {
		return nil, err
	}
	var report SentimentReport
	if err := decodeStrict(res.Text, &report); err != nil {
		return nil, err
	}
	return report, nil
}

func (a *sentimentAgent) Fallback(t *transcript.Transcript) any {
	return fallbackSentiment(t)
}

type summaryAgent struct {
	llm    Completer
	params llm.Params
}

func (a *summaryAgent) Name() string { return AgentSummary }

func (a *summaryAgent) Run(ctx context.Context, t *transcript.Transcript) (any, error) {
	params := a.params
	params.SystemPrompt = summarySystem
	res, err := a.llm.Complete(ctx, buildPrompt(summaryPrompt, t), params)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, fmt.Errorf("malformed response: empty summary")
	}
	return SummaryReport{Summary: text}, nil
}

func (a *summaryAgent) Fallback(t *transcript.Transcript) any {
	return fallbackSummary(t)
}

// DefaultAgents builds the standard five-agent set over one completer.
func DefaultAgents(completer Completer) []Agent {
	params := llm.DefaultParams()
	return []Agent{
		&topicAgent{llm: completer, params: params},
		&decisionAgent{llm: completer, params: params},
		&actionAgent{llm: completer, params: params},
		&sentimentAgent{llm: completer, params: params},
		&summaryAgent{llm: completer, params: params},
	}
}
