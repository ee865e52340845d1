package transcript

// Chunking defaults tuned for embedding models with short context windows.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunk is one embeddable slice of transcript text with the timestamp of the
// segment it starts in, when one can be attributed.
type Chunk struct {
	Text      string
	Index     int
	Timestamp *float64
}

// Chunks splits the transcript text into overlapping character chunks and
// attributes each chunk the start time of the segment at the same ordinal,
// when available.
func (t *Transcript) Chunks(size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	text := t.Text
	if text == "" {
		return nil
	}

	var chunks []Chunk
	runes := []rune(text)
	start := 0
	for {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		idx := len(chunks)
		c := Chunk{Text: string(runes[start:end]), Index: idx}
		if idx < len(t.Segments) {
			ts := t.Segments[idx].Start
			c.Timestamp = &ts
		}
		chunks = append(chunks, c)

		if end >= len(runes) {
			break
		}
		start += size - overlap
	}
	return chunks
}
