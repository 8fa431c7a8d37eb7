package model

// Chunk is an indexable unit of corpus text (one sentence group)
type Chunk struct {
	ID   int    `json:"id"`   // Position in the store, assigned once at build time
	Text string `json:"text"` // Sentence group joined with single spaces
}

// Document is a source document as an ordered sequence of sentence groups
type Document struct {
	Title  string     `json:"title,omitempty"`
	Groups [][]string `json:"groups"` // Each group becomes exactly one chunk
}

// RetrievedPassage is a chunk returned by a top-k query
type RetrievedPassage struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"` // L2 distance between unit vectors, ascending in results
}

// PassageTexts returns the chunk texts in order
func PassageTexts(passages []RetrievedPassage) []string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Chunk.Text
	}
	return texts
}
