package index

import (
	"context"
	"sync/atomic"

	"github.com/ppiankov/entailrag/internal/model"
)

// Live serves queries from the current index while a rebuilt one can be swapped in
// Each Index stays immutable; a query sees either the old or the new one, never a mix
type Live struct {
	current atomic.Pointer[Index]
}

// NewLive creates a live view over idx
func NewLive(idx *Index) *Live {
	l := &Live{}
	l.current.Store(idx)
	return l
}

// Retrieve queries the current index
func (l *Live) Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error) {
	return l.current.Load().Retrieve(ctx, query, k)
}

// Swap installs idx and returns the previous index
func (l *Live) Swap(idx *Index) *Index {
	return l.current.Swap(idx)
}

// Current returns the index queries are served from
func (l *Live) Current() *Index {
	return l.current.Load()
}
