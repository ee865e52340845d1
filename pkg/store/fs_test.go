package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/insights"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/pipeline"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

func sampleResult(meetingID string) *pipeline.Result {
	return &pipeline.Result{
		MeetingID: meetingID,
		ProjectID: "proj-1",
		Transcript: &transcript.Transcript{
			Text:     "We decided to ship Friday.",
			Segments: []transcript.Segment{{Text: "We decided to ship Friday.", Start: 0, End: 3, Speaker: "Alice"}},
		},
		Insights: &insights.InsightBundle{
			MeetingID:   meetingID,
			GeneratedAt: time.Now().UTC(),
			Summary: insights.AgentResult{
				AgentName: insights.AgentSummary,
				Status:    insights.StatusSuccess,
				Payload:   insights.SummaryReport{Summary: "- Ship Friday"},
			},
		},
	}
}

func TestFSStoreSaveAndLoad(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, sampleResult("mtg_001")))

	loaded, err := s.LoadResult(ctx, "mtg_001")
	require.NoError(t, err)
	assert.Equal(t, "mtg_001", loaded.MeetingID)
	assert.Equal(t, "proj-1", loaded.ProjectID)
	assert.Equal(t, "We decided to ship Friday.", loaded.Transcript.Text)
	assert.Equal(t, insights.StatusSuccess, loaded.Insights.Summary.Status)
}

func TestFSStoreLoadMissingReturnsNotFound(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	_, err := s.LoadResult(context.Background(), "missing")
	assert.ErrorIs(t, err, pferrors.ErrNotFound)
}

func TestFSStoreOverwriteReplacesResult(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, sampleResult("mtg_001")))

	updated := sampleResult("mtg_001")
	updated.ProjectID = "proj-2"
	require.NoError(t, s.SaveResult(ctx, updated))

	loaded, err := s.LoadResult(ctx, "mtg_001")
	require.NoError(t, err)
	assert.Equal(t, "proj-2", loaded.ProjectID)
}

func TestFSStoreRejectsEmptyMeetingID(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	err := s.SaveResult(context.Background(), &pipeline.Result{})
	assert.ErrorIs(t, err, pferrors.ErrValidation)
}

func TestFSStoreDeleteMeeting(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, sampleResult("mtg_001")))
	require.NoError(t, s.DeleteMeeting(ctx, "mtg_001"))

	_, err := s.LoadResult(ctx, "mtg_001")
	assert.ErrorIs(t, err, pferrors.ErrNotFound)

	assert.ErrorIs(t, s.DeleteMeeting(ctx, "mtg_001"), pferrors.ErrNotFound)
}

func TestFSStoreListMeetings(t *testing.T) {
	s := NewFSStore(t.TempDir(), logging.NewNopLogger())
	ctx := context.Background()

	ids, err := s.ListMeetings(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SaveResult(ctx, sampleResult("mtg_001")))
	require.NoError(t, s.SaveResult(ctx, sampleResult("mtg_002")))

	ids, err = s.ListMeetings(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mtg_001", "mtg_002"}, ids)
}
