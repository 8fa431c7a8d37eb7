package corpus

import (
	"fmt"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
)

// Store is the ordered chunk collection an index is built over
// Chunk ids are positions in the store and never change after Build
type Store struct {
	chunks []model.Chunk
}

// Build flattens documents into chunks: each sentence group, joined by single
// spaces, becomes one chunk; documents and groups keep their input order
func Build(docs []model.Document) *Store {
	// Always a fresh slice: repeated builds never share or grow state
	chunks := make([]model.Chunk, 0, countGroups(docs))
	for _, doc := range docs {
		for _, group := range doc.Groups {
			chunks = append(chunks, model.Chunk{
				ID:   len(chunks),
				Text: strings.Join(group, " "),
			})
		}
	}
	return &Store{chunks: chunks}
}

// FromTexts builds a store with one chunk per text
func FromTexts(texts []string) *Store {
	chunks := make([]model.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = model.Chunk{ID: i, Text: t}
	}
	return &Store{chunks: chunks}
}

// Len returns the number of chunks
func (s *Store) Len() int {
	return len(s.chunks)
}

// Chunks returns a copy of the chunks in id order
func (s *Store) Chunks() []model.Chunk {
	out := make([]model.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Get returns the chunk with the given id
func (s *Store) Get(id int) (model.Chunk, error) {
	if id < 0 || id >= len(s.chunks) {
		return model.Chunk{}, fmt.Errorf("chunk %d out of range [0,%d)", id, len(s.chunks))
	}
	return s.chunks[id], nil
}

func countGroups(docs []model.Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Groups)
	}
	return n
}
