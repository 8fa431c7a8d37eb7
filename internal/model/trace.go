package model

// Trace holds the intermediate artifacts of one pipeline invocation
// It is observational only; Answer is identical to what Answer() returns
type Trace struct {
	ID             string             `json:"id"`
	Pipeline       string             `json:"pipeline"`
	Question       string             `json:"question"`
	Claim          string             `json:"claim,omitempty"`
	Subclaims      []string           `json:"subclaims"`
	PassagesBefore []RetrievedPassage `json:"passages_before"`
	PassagesAfter  []RetrievedPassage `json:"passages_after"`
	FallbackUsed   bool               `json:"fallback_used"` // Filter kept nothing and returned its input
	Prompt         string             `json:"prompt,omitempty"`
	Answer         string             `json:"answer"`
}

// Question is one evaluation item
type Question struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
	Claim    string `json:"claim,omitempty"`
	Answer   string `json:"answer,omitempty"` // Gold answer, optional
}

// Score holds the answer-quality metrics of one prediction
type Score struct {
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`
}

// QuestionResult is the outcome of running one pipeline on one question
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Pipeline   string `json:"pipeline"`
	Trace      *Trace `json:"trace,omitempty"`
	Score      *Score `json:"score,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PipelineSummary aggregates scores over a batch for one pipeline
type PipelineSummary struct {
	Pipeline   string  `json:"pipeline"`
	Questions  int     `json:"questions"`
	Scored     int     `json:"scored"`
	Failures   int     `json:"failures"`
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`
	Fallbacks  int     `json:"fallbacks"`
	AvgKept    float64 `json:"avg_passages_kept"`
}

// BatchReport is the output of an evaluation run
type BatchReport struct {
	RunID     string            `json:"run_id"`
	Summaries []PipelineSummary `json:"summaries"`
	Results   []QuestionResult  `json:"results"`
}
