package index

import (
	"context"
	"testing"

	"github.com/ppiankov/entailrag/internal/corpus"
)

func TestLive_Swap(t *testing.T) {
	old, emb := scenarioIndex(t)
	live := NewLive(old)

	got, err := live.Retrieve(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got[0].Chunk.Text != "chunk1" {
		t.Errorf("Expected chunk1 from old index, got %q", got[0].Chunk.Text)
	}

	emb.vectors["chunk3"] = unitAt(0.1)
	rebuilt, err := Build(context.Background(), corpus.FromTexts([]string{"chunk0", "chunk3"}).Chunks(), emb, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if prev := live.Swap(rebuilt); prev != old {
		t.Error("Swap should return the previous index")
	}
	if live.Current() != rebuilt {
		t.Error("Current should return the rebuilt index")
	}

	got, err = live.Retrieve(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got[0].Chunk.Text != "chunk3" || got[0].Chunk.ID != 1 {
		t.Errorf("Expected chunk3 (id 1) from rebuilt index, got %+v", got[0].Chunk)
	}

	// The old index is unchanged
	if old.Len() != 3 {
		t.Errorf("Expected old index to keep 3 chunks, got %d", old.Len())
	}
}
