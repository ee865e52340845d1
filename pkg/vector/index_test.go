package vector

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(t.TempDir(), NewLocalEmbedder(64), logging.NewNopLogger())
	require.NoError(t, err)
	return idx
}

func sampleBundle() *insights.InsightBundle {
	assignee := "Bob"
	return &insights.InsightBundle{
		MeetingID: "mtg_001",
		Topics: insights.AgentResult{
			AgentName: insights.AgentTopic, Status: insights.StatusSuccess,
			Payload: []insights.TopicSegment{{Topic: "index migration", Start: 0, End: 9, Summary: "Status of the index migration."}},
		},
		Decisions: insights.AgentResult{
			AgentName: insights.AgentDecision, Status: insights.StatusSuccess,
			Payload: []insights.Decision{{Decision: "Ship the new index Friday", Participants: []string{"Alice"}, Rationale: "Migration is ready"}},
		},
		ActionItems: insights.AgentResult{
			AgentName: insights.AgentAction, Status: insights.StatusSuccess,
			Payload: []insights.ActionItem{{Action: "Update the runbook", Assignee: &assignee}},
		},
		Sentiment: insights.AgentResult{
			AgentName: insights.AgentSentiment, Status: insights.StatusSuccess,
			Payload: insights.SentimentReport{Overall: "positive"},
		},
		Summary: insights.AgentResult{
			AgentName: insights.AgentSummary, Status: insights.StatusSuccess,
			Payload: insights.SummaryReport{Summary: "- Migration on track\n- Ship Friday"},
		},
	}
}

func sampleTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		Text: "Good progress on the migration. We decided to ship the new index on Friday.",
		Segments: []transcript.Segment{
			{Text: "Good progress on the migration.", Start: 0, End: 4, Speaker: "Alice"},
			{Text: "We decided to ship the new index on Friday.", Start: 4, End: 9, Speaker: "Alice"},
		},
	}
}

func TestIngestMeetingDerivesAllSegmentTypes(t *testing.T) {
	idx := newTestIndex(t)

	n, err := idx.IngestMeeting(context.Background(), "mtg_001", "proj-1", sampleTranscript(), sampleBundle())
	require.NoError(t, err)
	// One transcript chunk plus one record per agent item.
	assert.Equal(t, 5, n)

	stats := idx.Stats()
	assert.Equal(t, 5, stats.TotalVectors)
	assert.Equal(t, 64, stats.EmbeddingDimension)
	assert.Equal(t, 1, stats.SegmentTypes[SegmentTranscript])
	assert.Equal(t, 1, stats.SegmentTypes[SegmentTopic])
	assert.Equal(t, 1, stats.SegmentTypes[SegmentDecision])
	assert.Equal(t, 1, stats.SegmentTypes[SegmentActionItem])
	assert.Equal(t, 1, stats.SegmentTypes[SegmentSummary])
	assert.Equal(t, 5, stats.Meetings["mtg_001"])
	assert.Equal(t, 5, stats.Projects["proj-1"])
}

func TestIngestLongTranscriptChunksWithOverlap(t *testing.T) {
	idx := newTestIndex(t)

	long := &transcript.Transcript{Text: strings.Repeat("the migration is going well and we keep making progress ", 30)}
	n, err := idx.IngestMeeting(context.Background(), "mtg_long", "", long, nil)
	require.NoError(t, err)
	assert.Greater(t, n, 1)
	assert.Equal(t, n, idx.CountForMeeting("mtg_long"))
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	embedder := NewLocalEmbedder(64)

	idx, err := NewIndex(dir, embedder, logging.NewNopLogger())
	require.NoError(t, err)
	_, err = idx.IngestMeeting(context.Background(), "mtg_001", "", sampleTranscript(), sampleBundle())
	require.NoError(t, err)

	reopened, err := NewIndex(dir, embedder, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, idx.Stats().TotalVectors, reopened.Stats().TotalVectors)
	assert.Equal(t, 64, reopened.Stats().EmbeddingDimension)

	// The reopened index serves searches without re-embedding records.
	resp, err := reopened.Search(context.Background(), Query{Query: "index migration"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestDeleteMeetingRemovesOnlyThatMeeting(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.IngestMeeting(ctx, "mtg_001", "", sampleTranscript(), sampleBundle())
	require.NoError(t, err)
	_, err = idx.Add(ctx, []Record{{MeetingID: "mtg_002", SegmentType: SegmentSummary, Text: "another meeting summary"}})
	require.NoError(t, err)

	removed, err := idx.DeleteMeeting("mtg_001")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, 0, idx.CountForMeeting("mtg_001"))
	assert.Equal(t, 1, idx.CountForMeeting("mtg_002"))

	removed, err = idx.DeleteMeeting("mtg_001")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewIndex(dir, NewLocalEmbedder(64), logging.NewNopLogger())
	require.NoError(t, err)

	_, err = idx.Add(context.Background(), []Record{{MeetingID: "m", SegmentType: SegmentSummary, Text: "first"}})
	require.NoError(t, err)

	idx.embedder = NewLocalEmbedder(32)
	_, err = idx.Add(context.Background(), []Record{{MeetingID: "m", SegmentType: SegmentSummary, Text: "second"}})
	assert.Error(t, err)
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	embedder := NewLocalEmbedder(64)
	a, err := embedder.Embed(context.Background(), []string{"ship the index"})
	require.NoError(t, err)
	b, err := embedder.Embed(context.Background(), []string{"ship the index"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := embedder.Embed(context.Background(), []string{"something unrelated entirely"})
	require.NoError(t, err)
	assert.NotEqual(t, a[0], c[0])
}
