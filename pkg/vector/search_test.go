package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecords(t *testing.T, idx *Index) {
	t.Helper()
	records := []Record{
		{MeetingID: "mtg_001", ProjectID: "proj-1", SegmentType: SegmentDecision, Text: "Ship the new index on Friday"},
		{MeetingID: "mtg_001", ProjectID: "proj-1", SegmentType: SegmentActionItem, Text: "Update the runbook before release"},
		{MeetingID: "mtg_002", ProjectID: "proj-2", SegmentType: SegmentDecision, Text: "Postpone the hiring round"},
		{MeetingID: "mtg_002", ProjectID: "proj-2", SegmentType: SegmentSummary, Text: "Budget review and hiring discussion"},
	}
	_, err := idx.Add(context.Background(), records)
	require.NoError(t, err)
}

func TestSearchIdenticalTextScoresHighest(t *testing.T) {
	idx := newTestIndex(t)
	seedRecords(t, idx)

	resp, err := idx.Search(context.Background(), Query{Query: "Ship the new index on Friday"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, "Ship the new index on Friday", top.Text)
	// Identical text embeds identically: zero distance, similarity 1.
	assert.InDelta(t, 1.0, top.Similarity, 1e-9)
	assert.InDelta(t, 0.0, top.Distance, 1e-9)

	// Descending order throughout.
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Similarity, resp.Results[i].Similarity)
	}
}

func TestSearchSegmentTypeFilter(t *testing.T) {
	idx := newTestIndex(t)
	seedRecords(t, idx)

	resp, err := idx.Search(context.Background(), Query{
		Query:        "decision about shipping",
		SegmentTypes: []string{SegmentDecision},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, SegmentDecision, r.SegmentType)
	}
}

func TestSearchMeetingIDFilter(t *testing.T) {
	idx := newTestIndex(t)
	seedRecords(t, idx)

	resp, err := idx.Search(context.Background(), Query{
		Query:      "hiring",
		MeetingIDs: []string{"mtg_002"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "mtg_002", r.MeetingID)
	}
}

func TestSearchProjectScopeExcludesUnscopedRecords(t *testing.T) {
	idx := newTestIndex(t)
	seedRecords(t, idx)
	_, err := idx.Add(context.Background(), []Record{
		{MeetingID: "mtg_003", SegmentType: SegmentSummary, Text: "Legacy meeting with no project"},
	})
	require.NoError(t, err)

	resp, err := idx.Search(context.Background(), Query{Query: "meeting", ProjectID: "proj-1"})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, "mtg_001", r.MeetingID)
	}
}

func TestSearchMinScoreFilters(t *testing.T) {
	idx := newTestIndex(t)
	seedRecords(t, idx)

	resp, err := idx.Search(context.Background(), Query{
		Query:    "Ship the new index on Friday",
		MinScore: 0.99,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Ship the new index on Friday", resp.Results[0].Text)
}

func TestSearchPaginationConcatenatesWithoutDuplicates(t *testing.T) {
	idx := newTestIndex(t)
	var records []Record
	for i := 0; i < 7; i++ {
		records = append(records, Record{
			MeetingID:   "mtg_page",
			SegmentType: SegmentTranscript,
			Text:        fmt.Sprintf("release planning discussion part %d", i),
		})
	}
	_, err := idx.Add(context.Background(), records)
	require.NoError(t, err)

	var all []string
	total := 0
	for page := 1; ; page++ {
		resp, err := idx.Search(context.Background(), Query{
			Query:    "release planning",
			TopK:     10,
			Page:     page,
			PageSize: 3,
		})
		require.NoError(t, err)
		total = resp.TotalCount
		if len(resp.Results) == 0 {
			break
		}
		for _, r := range resp.Results {
			all = append(all, r.Text)
		}
	}

	assert.Equal(t, 7, total)
	assert.Len(t, all, 7)
	seen := map[string]bool{}
	for _, text := range all {
		assert.False(t, seen[text], "duplicate result %q across pages", text)
		seen[text] = true
	}
}

func TestSearchTotalCountCoversMatchesBeyondDefaultPage(t *testing.T) {
	idx := newTestIndex(t)
	var records []Record
	for i := 0; i < 15; i++ {
		records = append(records, Record{
			MeetingID:   "mtg_page",
			SegmentType: SegmentTranscript,
			Text:        fmt.Sprintf("release planning discussion part %d", i),
		})
	}
	_, err := idx.Add(context.Background(), records)
	require.NoError(t, err)

	// More matches than the default page cap of 10: the total still counts
	// all of them and late pages still return records.
	resp, err := idx.Search(context.Background(), Query{
		Query:    "release planning",
		Page:     1,
		PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.TotalCount)
	assert.Len(t, resp.Results, 5)

	resp, err = idx.Search(context.Background(), Query{
		Query:    "release planning",
		Page:     3,
		PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.TotalCount)
	assert.Len(t, resp.Results, 5)

	resp, err = idx.Search(context.Background(), Query{
		Query:    "release planning",
		Page:     4,
		PageSize: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchEmptyIndexReturnsEmptyPage(t *testing.T) {
	idx := newTestIndex(t)
	resp, err := idx.Search(context.Background(), Query{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalCount)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.Search(context.Background(), Query{})
	assert.Error(t, err)
}

func TestSimilarityDependsOnlyOnDistance(t *testing.T) {
	assert.InDelta(t, 1.0, similarity(0), 1e-12)
	assert.InDelta(t, 0.5, similarity(1), 1e-12)
	assert.Greater(t, similarity(0.2), similarity(0.7))
}
