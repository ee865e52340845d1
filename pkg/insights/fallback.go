package insights

import (
	"sort"
	"strings"

	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

// Local fallbacks. Each produces schema-valid output from the transcript
// alone, with no network access, so the bundle keeps its shape when every
// provider is down. The heuristics are deliberately simple and deterministic:
// the same transcript always yields the same fallback payload.

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"we": true, "i": true, "you": true, "he": true, "she": true, "they": true,
	"will": true, "would": true, "should": true, "can": true, "could": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"so": true, "if": true, "then": true, "than": true, "as": true, "at": true,
	"by": true, "from": true, "not": true, "no": true, "yes": true, "ok": true,
	"our": true, "us": true, "my": true, "me": true, "your": true,
}

var decisionMarkers = []string{"decided", "decision", "agreed", "agree to", "we will go with", "approved", "let's go with", "settled on"}

var actionMarkers = []string{" will ", "needs to", "need to", "should ", "going to", "to do", "follow up", "take care of", "by friday", "by monday", "next week"}

var positiveWords = map[string]bool{
	"great": true, "good": true, "excellent": true, "happy": true, "glad": true,
	"awesome": true, "perfect": true, "nice": true, "love": true, "agreed": true,
	"thanks": true, "thank": true, "progress": true, "success": true, "well": true,
}

var negativeWords = map[string]bool{
	"bad": true, "problem": true, "issue": true, "blocked": true, "blocker": true,
	"concern": true, "worried": true, "fail": true, "failed": true, "failure": true,
	"delay": true, "delayed": true, "behind": true, "risk": true, "difficult": true,
	"unfortunately": true, "wrong": true, "broken": true, "bug": true,
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// sentences splits text on terminal punctuation, keeping non-empty parts.
func sentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// fallbackTopics windows the transcript into up to five equal spans and labels
// each with its most frequent non-stopword terms.
func fallbackTopics(t *transcript.Transcript) []TopicSegment {
	segs := t.Segments
	if len(segs) == 0 {
		if strings.TrimSpace(t.Text) == "" {
			return []TopicSegment{}
		}
		return []TopicSegment{{
			Topic:   topicLabel(t.Text),
			Start:   0,
			End:     0,
			Summary: firstSentence(t.Text),
		}}
	}

	windows := 5
	if len(segs) < windows {
		windows = len(segs)
	}
	per := len(segs) / windows
	rem := len(segs) % windows

	topics := make([]TopicSegment, 0, windows)
	idx := 0
	for w := 0; w < windows; w++ {
		n := per
		if w < rem {
			n++
		}
		group := segs[idx : idx+n]
		idx += n

		var text strings.Builder
		for _, s := range group {
			text.WriteString(s.Text)
			text.WriteString(" ")
		}
		topics = append(topics, TopicSegment{
			Topic:   topicLabel(text.String()),
			Start:   group[0].Start,
			End:     group[len(group)-1].End,
			Summary: firstSentence(text.String()),
		})
	}
	return topics
}

// topicLabel picks the two most frequent non-stopword terms, ties broken
// alphabetically.
func topicLabel(text string) string {
	counts := map[string]int{}
	for _, tok := range tokenize(text) {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		counts[tok]++
	}
	if len(counts) == 0 {
		return "general discussion"
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 2 {
		terms = terms[:2]
	}
	return strings.Join(terms, ", ")
}

func firstSentence(text string) string {
	ss := sentences(strings.TrimSpace(text))
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// fallbackDecisions scans segments for decision markers.
func fallbackDecisions(t *transcript.Transcript) []Decision {
	decisions := []Decision{}
	for _, seg := range t.Segments {
		lower := strings.ToLower(seg.Text)
		for _, marker := range decisionMarkers {
			if strings.Contains(lower, marker) {
				var participants []string
				if seg.Speaker != "" {
					participants = []string{seg.Speaker}
				}
				decisions = append(decisions, Decision{
					Decision:     strings.TrimSpace(seg.Text),
					Participants: participants,
					Rationale:    "",
					Evidence:     strings.TrimSpace(seg.Text),
				})
				break
			}
		}
	}
	return decisions
}

// fallbackActions scans segments for commitment phrasing. The speaker of a
// "X will ..." segment becomes the assignee.
func fallbackActions(t *transcript.Transcript) []ActionItem {
	actions := []ActionItem{}
	for _, seg := range t.Segments {
		lower := " " + strings.ToLower(seg.Text) + " "
		for _, marker := range actionMarkers {
			if strings.Contains(lower, marker) {
				var assignee *string
				if seg.Speaker != "" {
					speaker := seg.Speaker
					assignee = &speaker
				}
				actions = append(actions, ActionItem{
					Action:   strings.TrimSpace(seg.Text),
					Assignee: assignee,
					Due:      nil,
					Evidence: strings.TrimSpace(seg.Text),
				})
				break
			}
		}
	}
	return actions
}

// fallbackSentiment classifies each segment by positive/negative word counts
// and derives the overall label by majority, neutral on ties.
func fallbackSentiment(t *transcript.Transcript) SentimentReport {
	report := SentimentReport{Overall: "neutral", Segments: []SegmentSentiment{}}
	tally := map[string]int{}

	for _, seg := range t.Segments {
		pos, neg := 0, 0
		for _, tok := range tokenize(seg.Text) {
			if positiveWords[tok] {
				pos++
			}
			if negativeWords[tok] {
				neg++
			}
		}
		label := "neutral"
		rationale := "no strong sentiment markers"
		switch {
		case pos > neg:
			label = "positive"
			rationale = "positive language outweighs negative"
		case neg > pos:
			label = "negative"
			rationale = "negative language outweighs positive"
		}
		tally[label]++
		report.Segments = append(report.Segments, SegmentSentiment{
			Sentiment: label,
			Rationale: rationale,
			Start:     seg.Start,
			End:       seg.End,
			Text:      seg.Text,
		})
	}

	if tally["positive"] > tally["negative"] && tally["positive"] >= tally["neutral"] {
		report.Overall = "positive"
	} else if tally["negative"] > tally["positive"] && tally["negative"] >= tally["neutral"] {
		report.Overall = "negative"
	}
	return report
}

// fallbackSummary takes leading sentences up to roughly 120 words.
func fallbackSummary(t *transcript.Transcript) SummaryReport {
	const wordBudget = 120

	text := t.Text
	if strings.TrimSpace(text) == "" {
		var b strings.Builder
		for _, seg := range t.Segments {
			b.WriteString(seg.Text)
			b.WriteString(" ")
		}
		text = b.String()
	}

	var out []string
	words := 0
	for _, s := range sentences(text) {
		n := len(strings.Fields(s))
		if words+n > wordBudget && len(out) > 0 {
			break
		}
		out = append(out, "- "+s)
		words += n
	}
	if len(out) == 0 {
		return SummaryReport{Summary: "- No transcript content available."}
	}
	return SummaryReport{Summary: strings.Join(out, "\n")}
}
