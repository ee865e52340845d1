package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/vector"
)

type fakeRetriever struct {
	results []vector.Result
	err     error
	gotQ    vector.Query
}

func (f *fakeRetriever) Search(_ context.Context, q vector.Query) (*vector.Response, error) {
	f.gotQ = q
	if f.err != nil {
		return nil, f.err
	}
	return &vector.Response{Results: f.results, TotalCount: len(f.results)}, nil
}

type fakeCompleter struct {
	reply     string
	err       error
	gotParams llm.Params
	gotPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, params llm.Params) (*llm.Result, error) {
	f.gotPrompt = prompt
	f.gotParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Text: f.reply, Provider: "fake"}, nil
}

func hit(meetingID, segType, text string, score float64) vector.Result {
	return vector.Result{MeetingID: meetingID, SegmentType: segType, Text: text, Similarity: score}
}

func TestAskWithMatchesGroupsContextAndReportsSources(t *testing.T) {
	ts := 4.0
	retriever := &fakeRetriever{results: []vector.Result{
		{MeetingID: "mtg_001", SegmentType: "decision", Text: "Ship the new index Friday", Similarity: 0.9, Timestamp: &ts},
		hit("mtg_001", "action_item", "Update the runbook", 0.8),
		hit("mtg_002", "decision", "Postpone the hiring round", 0.7),
	}}
	completer := &fakeCompleter{reply: "The team decided to ship Friday."}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	answer, err := composer.Ask(context.Background(), Request{Message: "what was decided?", ProjectID: "proj-1"})
	require.NoError(t, err)

	assert.True(t, answer.UsedRAG)
	assert.Equal(t, "The team decided to ship Friday.", answer.Response)
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, "mtg_001", answer.Sources[0].MeetingID)
	assert.Equal(t, 0.9, answer.Sources[0].Similarity)

	// The project scope flows through to retrieval.
	assert.Equal(t, "proj-1", retriever.gotQ.ProjectID)

	// Context is grouped by segment type with both decisions under one heading.
	sys := completer.gotParams.SystemPrompt
	assert.Contains(t, sys, "--- Decision ---")
	assert.Contains(t, sys, "--- Action Item ---")
	assert.Contains(t, sys, "Ship the new index Friday")
	assert.Contains(t, sys, "Time: 4.0s")
	assert.Equal(t, 1, strings.Count(sys, "--- Decision ---"))
	assert.Contains(t, completer.gotPrompt, "what was decided?")
}

func TestAskNoMatchesAnswersWithoutRAG(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{reply: "Meetings usually cover status and blockers."}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	answer, err := composer.Ask(context.Background(), Request{Message: "what do meetings cover?"})
	require.NoError(t, err)

	assert.False(t, answer.UsedRAG)
	assert.Empty(t, answer.Sources)
	assert.NotEmpty(t, answer.Response)
	assert.NotContains(t, completer.gotParams.SystemPrompt, "RELEVANT MEETING DATA")
	// The user message passes through unchanged without context.
	assert.Equal(t, "what do meetings cover?", completer.gotPrompt)
}

func TestAskRetrievalFailureDegradesToNoContext(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("index unavailable")}
	completer := &fakeCompleter{reply: "answered anyway"}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	answer, err := composer.Ask(context.Background(), Request{Message: "anything?"})
	require.NoError(t, err)
	assert.False(t, answer.UsedRAG)
	assert.Equal(t, "answered anyway", answer.Response)
}

func TestAskCapsSourcesAtFive(t *testing.T) {
	var results []vector.Result
	for i := 0; i < 12; i++ {
		results = append(results, hit("mtg_001", "transcript", fmt.Sprintf("chunk %d", i), 0.9-float64(i)*0.01))
	}
	retriever := &fakeRetriever{results: results}
	completer := &fakeCompleter{reply: "ok"}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	answer, err := composer.Ask(context.Background(), Request{Message: "question"})
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 5)
}

func TestAskIncludesUIContextInPrompt(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{reply: "ok"}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	_, err := composer.Ask(context.Background(), Request{
		Message:   "what is this?",
		UIContext: "meeting detail page for mtg_001",
	})
	require.NoError(t, err)
	assert.Contains(t, completer.gotParams.SystemPrompt, "meeting detail page for mtg_001")
}

func TestAskRejectsEmptyMessage(t *testing.T) {
	composer := NewComposer(&fakeRetriever{}, &fakeCompleter{}, logging.NewNopLogger())
	_, err := composer.Ask(context.Background(), Request{Message: "   "})
	assert.Error(t, err)
}

func TestAskCompletionFailurePropagates(t *testing.T) {
	composer := NewComposer(&fakeRetriever{}, &fakeCompleter{err: fmt.Errorf("all providers down")}, logging.NewNopLogger())
	_, err := composer.Ask(context.Background(), Request{Message: "question"})
	assert.Error(t, err)
}

func TestSourcePreviewTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	retriever := &fakeRetriever{results: []vector.Result{hit("mtg_001", "summary", long, 0.9)}}
	completer := &fakeCompleter{reply: "ok"}

	composer := NewComposer(retriever, completer, logging.NewNopLogger())
	answer, err := composer.Ask(context.Background(), Request{Message: "question"})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Len(t, answer.Sources[0].Text, 200)
}
