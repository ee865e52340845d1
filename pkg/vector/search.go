package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/otherjamesbrown/meeting-insights/pkg/metrics"
)

// Query describes one similarity search.
type Query struct {
	Query        string   `json:"query"`
	TopK         int      `json:"top_k"`
	SegmentTypes []string `json:"segment_types,omitempty"`
	MeetingIDs   []string `json:"meeting_ids,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
	MinScore     float64  `json:"min_score"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
}

// Result is one search hit.
type Result struct {
	Text         string         `json:"text"`
	MeetingID    string         `json:"meeting_id"`
	SegmentType  string         `json:"segment_type"`
	Timestamp    *float64       `json:"timestamp,omitempty"`
	SegmentIndex *int           `json:"segment_index,omitempty"`
	Similarity   float64        `json:"similarity_score"`
	Distance     float64        `json:"distance"`
	Extra        map[string]any `json:"additional_data,omitempty"`
}

// Response is a page of search hits plus the match total before paging.
type Response struct {
	Results    []Result `json:"results"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// similarity maps an L2 distance onto (0, 1]. Identical vectors score 1 and
// the score depends only on the distance itself, so a record's score is
// stable no matter what else matched the query.
func similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (q Query) matches(rec Record) bool {
	if len(q.SegmentTypes) > 0 && !contains(q.SegmentTypes, rec.SegmentType) {
		return false
	}
	if len(q.MeetingIDs) > 0 && !contains(q.MeetingIDs, rec.MeetingID) {
		return false
	}
	// Project-scoped searches exclude records with no project.
	if q.ProjectID != "" && rec.ProjectID != q.ProjectID {
		return false
	}
	return true
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// Search embeds the query, scores every record passing the filters, and
// returns the requested page ordered by descending similarity. Ties keep
// insertion order, so results are fully deterministic.
func (x *Index) Search(ctx context.Context, q Query) (*Response, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("search: empty query")
	}
	// TopK is the page size default for callers that only want the best
	// handful of hits and never paginate.
	if q.TopK <= 0 {
		q.TopK = 10
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = q.TopK
	}

	metrics.SearchQueries.Inc()

	x.mu.RLock()
	empty := len(x.records) == 0
	x.mu.RUnlock()
	if empty {
		return &Response{Results: []Result{}, Page: q.Page, PageSize: q.PageSize}, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{q.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(queryVec) != x.dim {
		return nil, fmt.Errorf("query embedding dimension %d does not match index dimension %d", len(queryVec), x.dim)
	}

	var hits []Result
	for _, rec := range x.records {
		if !q.matches(rec) {
			continue
		}
		dist := l2Distance(queryVec, rec.Embedding)
		score := similarity(dist)
		if score < q.MinScore {
			continue
		}
		hits = append(hits, Result{
			Text:         rec.Text,
			MeetingID:    rec.MeetingID,
			SegmentType:  rec.SegmentType,
			Timestamp:    rec.Timestamp,
			SegmentIndex: rec.SegmentIndex,
			Similarity:   score,
			Distance:     dist,
			Extra:        rec.Extra,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	// TotalCount covers every filtered match, not just the current page,
	// so callers can walk all pages and account for every hit.
	total := len(hits)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	page := make([]Result, end-start)
	copy(page, hits[start:end])

	return &Response{
		Results:    page,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}
