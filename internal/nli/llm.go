package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/model"
)

// LLMClassifier asks a chat model for an NLI verdict in JSON
type LLMClassifier struct {
	gen llm.Generator
}

// NewLLMClassifier creates a classifier backed by gen
func NewLLMClassifier(gen llm.Generator) *LLMClassifier {
	return &LLMClassifier{gen: gen}
}

// Name returns the backend name
func (c *LLMClassifier) Name() string {
	return "llm-nli:" + c.gen.Name()
}

const nliPrompt = `You are a natural language inference classifier.
Decide whether the PREMISE entails, contradicts, or is neutral toward the HYPOTHESIS.
Use only the premise; do not use outside knowledge.

PREMISE:
%s

HYPOTHESIS:
%s

Respond with a single JSON object and nothing else:
{"label": "entailment" | "neutral" | "contradiction", "confidence": <number between 0 and 1>}`

type llmVerdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify prompts the model once and parses its JSON verdict
func (c *LLMClassifier) Classify(ctx context.Context, premise, hypothesis string) (model.Verdict, error) {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(nliPrompt, premise, hypothesis))
	if err != nil {
		return model.Verdict{}, err
	}
	return parseLLMVerdict(out)
}

// parseLLMVerdict extracts the first JSON object, tolerating code fences and prose around it
func parseLLMVerdict(out string) (model.Verdict, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return model.Verdict{}, fmt.Errorf("no JSON verdict in response: %q", truncate(out, 120))
	}

	var raw llmVerdict
	if err := json.Unmarshal([]byte(out[start:end+1]), &raw); err != nil {
		return model.Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}

	label, err := model.ParseLabel(strings.ToLower(strings.TrimSpace(raw.Label)))
	if err != nil {
		return model.Verdict{}, err
	}

	return model.Verdict{Label: label, Confidence: raw.Confidence}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
