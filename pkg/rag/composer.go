// Package rag answers free-form questions over indexed meeting content.
// The composer retrieves relevant records, folds them into a structured
// prompt grouped by segment type, and asks the LLM for a synthesized answer.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/vector"
)

// Retrieval defaults.
const (
	defaultTopK       = 15
	contextResultCap  = 10
	sourceCap         = 5
	defaultMinScore   = 0.2
	sourceTextPreview = 200
)

// Retriever is the slice of the vector index the composer needs.
type Retriever interface {
	Search(ctx context.Context, q vector.Query) (*vector.Response, error)
}

// Completer is the slice of the LLM client the composer needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, params llm.Params) (*llm.Result, error)
}

// Source attributes part of an answer to an indexed record.
type Source struct {
	MeetingID   string  `json:"meeting_id"`
	SegmentType string  `json:"segment_type"`
	Text        string  `json:"text"`
	Similarity  float64 `json:"similarity"`
}

// Answer is a chat response with its supporting sources. UsedRAG is false
// when retrieval found nothing relevant and the answer rests on the model
// alone.
type Answer struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
	UsedRAG  bool     `json:"used_rag"`
}

// Request is one chat turn. UIContext optionally describes what the user is
// looking at (a meeting page, a project view) so the answer can be situated.
type Request struct {
	Message   string `json:"message"`
	UIContext string `json:"ui_context,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// Composer wires retrieval and completion together.
type Composer struct {
	retriever Retriever
	llm       Completer
	topK      int
	minScore  float64
	logger    logging.Logger
}

// NewComposer builds a composer over an index and an LLM client.
func NewComposer(retriever Retriever, completer Completer, logger logging.Logger) *Composer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Composer{
		retriever: retriever,
		llm:       completer,
		topK:      defaultTopK,
		minScore:  defaultMinScore,
		logger:    logger.With(logging.F("component", "rag_composer")),
	}
}

// Ask answers one chat turn. Retrieval failures degrade to a no-context
// answer rather than failing the chat.
func (c *Composer) Ask(ctx context.Context, req Request) (*Answer, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("rag: empty message")
	}

	var hits []vector.Result
	resp, err := c.retriever.Search(ctx, vector.Query{
		Query:     message,
		TopK:      c.topK,
		ProjectID: req.ProjectID,
		MinScore:  c.minScore,
	})
	if err != nil {
		c.logger.Warn("retrieval failed, answering without context",
			logging.Err(err))
	} else {
		hits = resp.Results
	}

	systemPrompt := buildSystemPrompt(hits, req.UIContext, req.ProjectID)
	userPrompt := message
	if len(hits) > 0 {
		userPrompt = fmt.Sprintf(
			"Based on the meeting data provided, answer this question: %s\n\n"+
				"Analyze the data and give a direct answer rather than restating the excerpts.", message)
	}

	params := llm.DefaultParams()
	params.SystemPrompt = systemPrompt
	result, err := c.llm.Complete(ctx, userPrompt, params)
	if err != nil {
		return nil, fmt.Errorf("rag: completion failed: %w", err)
	}

	sources := make([]Source, 0, sourceCap)
	for _, hit := range hits {
		if len(sources) == sourceCap {
			break
		}
		sources = append(sources, Source{
			MeetingID:   hit.MeetingID,
			SegmentType: hit.SegmentType,
			Text:        preview(hit.Text, sourceTextPreview),
			Similarity:  hit.Similarity,
		})
	}

	c.logger.Info("chat answered",
		logging.F("used_rag", len(sources) > 0),
		logging.F("sources", len(sources)))

	return &Answer{
		Response: result.Text,
		Sources:  sources,
		UsedRAG:  len(sources) > 0,
	}, nil
}

// buildSystemPrompt folds retrieved records into analysis instructions,
// grouped by segment type in first-seen order.
func buildSystemPrompt(hits []vector.Result, uiContext, projectID string) string {
	var b strings.Builder
	b.WriteString("You are an assistant for a meeting insights application.\n")
	b.WriteString("Analyze the meeting data and answer the user's question directly.\n")
	b.WriteString("Do not just repeat retrieved text; reason about it and synthesize an answer.\n")
	b.WriteString("If the data cannot answer the question, say so clearly.\n")

	if uiContext != "" {
		fmt.Fprintf(&b, "\nThe user is currently looking at: %s\n", uiContext)
	}
	if projectID != "" {
		fmt.Fprintf(&b, "\nThe user is viewing project %s. All meeting data below is from this project.\n", projectID)
	}

	if len(hits) == 0 {
		b.WriteString("\nNo relevant meeting content was found. Answer from general knowledge about meetings and note the lack of recorded context.\n")
		return b.String()
	}

	if len(hits) > contextResultCap {
		hits = hits[:contextResultCap]
	}

	b.WriteString("\n=== RELEVANT MEETING DATA ===\n")

	var order []string
	byType := map[string][]vector.Result{}
	for _, hit := range hits {
		if _, seen := byType[hit.SegmentType]; !seen {
			order = append(order, hit.SegmentType)
		}
		byType[hit.SegmentType] = append(byType[hit.SegmentType], hit)
	}

	for _, segType := range order {
		fmt.Fprintf(&b, "\n--- %s ---\n", typeLabel(segType))
		for i, hit := range byType[segType] {
			fmt.Fprintf(&b, "[%d] Meeting: %s\n", i+1, hit.MeetingID)
			fmt.Fprintf(&b, "Content: %s\n", hit.Text)
			if hit.Timestamp != nil {
				fmt.Fprintf(&b, "Time: %.1fs\n", *hit.Timestamp)
			}
		}
	}

	b.WriteString("\n=== END OF MEETING DATA ===\n")
	return b.String()
}

func typeLabel(segType string) string {
	words := strings.Split(segType, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
