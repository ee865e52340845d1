// Package transcript defines the transcript model shared by the processing
// pipeline, the insight agents, and vector ingestion.
package transcript

import "strings"

// Segment represents a single diarized segment of a transcript.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcript is the full output of the transcription collaborator.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Model    string    `json:"model,omitempty"`
}

// Speakers returns the unique speaker labels in order of first appearance.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, seg := range t.Segments {
		if seg.Speaker == "" || seen[seg.Speaker] {
			continue
		}
		seen[seg.Speaker] = true
		speakers = append(speakers, seg.Speaker)
	}
	return speakers
}

// DurationSeconds returns the end time of the last segment.
func (t *Transcript) DurationSeconds() float64 {
	var max float64
	for _, seg := range t.Segments {
		if seg.End > max {
			max = seg.End
		}
	}
	return max
}

// IsEmpty reports whether the transcript carries no usable text.
func (t *Transcript) IsEmpty() bool {
	if t == nil {
		return true
	}
	if strings.TrimSpace(t.Text) != "" {
		return false
	}
	for _, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}
