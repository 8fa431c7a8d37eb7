package pipeline

import (
	"errors"
	"fmt"

	"github.com/ppiankov/entailrag/internal/llm"
)

// Stage names a pipeline step
type Stage string

const (
	StageRetrieve  Stage = "retrieve"
	StageDecompose Stage = "decompose"
	StageFilter    Stage = "filter"
	StageCompose   Stage = "compose"
	StageGenerate  Stage = "generate"
)

// Failure is returned when any stage fails; it carries no partial result
type Failure struct {
	Pipeline string
	Stage    Stage
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s pipeline: %s: %v", f.Pipeline, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsProviderFailure reports whether err was caused by an embedding,
// classification or generation provider
func IsProviderFailure(err error) bool {
	return errors.Is(err, llm.ErrProvider)
}
