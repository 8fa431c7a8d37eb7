package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/pipeline"
	"github.com/ppiankov/entailrag/internal/score"
)

// QuestionJob runs one pipeline on one question
type QuestionJob struct {
	Index    int
	Question model.Question
	Pipeline pipeline.Pipeline
	Order    int // Position of Pipeline in the batch, for stable ordering
	Scorer   *score.Scorer
}

// Execute executes the question job
func (j *QuestionJob) Execute(ctx context.Context) Result {
	res := &QuestionResult{
		Index: j.Index,
		Order: j.Order,
		Result: model.QuestionResult{
			QuestionID: j.Question.ID,
			Pipeline:   j.Pipeline.Name(),
		},
	}

	trace, err := j.Pipeline.AnswerWithTrace(ctx, j.Question.Question, j.Question.Claim)
	if err != nil {
		res.Error = err
		res.Result.Error = err.Error()
		return res
	}

	res.Result.Trace = trace
	if j.Question.Answer != "" && j.Scorer != nil {
		s := j.Scorer.Score(trace.Answer, j.Question.Answer)
		res.Result.Score = &s
	}
	return res
}

// QuestionResult represents the result of a question job
type QuestionResult struct {
	Index  int
	Order  int
	Result model.QuestionResult
	Error  error
}

// GetError returns the error from the question result
func (r *QuestionResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates questions across pipelines concurrently
type BatchProcessor struct {
	pipelines   []pipeline.Pipeline
	scorer      *score.Scorer
	concurrency int
	progress    func(done, total int)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(pipelines []pipeline.Pipeline, scorer *score.Scorer, concurrency int) *BatchProcessor {
	if scorer == nil {
		scorer = score.NewScorer()
	}
	return &BatchProcessor{
		pipelines:   pipelines,
		scorer:      scorer,
		concurrency: concurrency,
	}
}

// OnProgress registers a callback invoked after each finished job
func (b *BatchProcessor) OnProgress(fn func(done, total int)) {
	b.progress = fn
}

// ProcessQuestions runs every pipeline on every question
// Results are ordered by question, then by pipeline order
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []model.Question) *model.BatchReport {
	report := &model.BatchReport{
		RunID:     uuid.NewString(),
		Summaries: []model.PipelineSummary{},
		Results:   []model.QuestionResult{},
	}
	if len(questions) == 0 || len(b.pipelines) == 0 {
		return report
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	total := len(questions) * len(b.pipelines)
	go func() {
		for i, q := range questions {
			for order, p := range b.pipelines {
				pool.Submit(&QuestionJob{
					Index:    i,
					Question: q,
					Pipeline: p,
					Order:    order,
					Scorer:   b.scorer,
				})
			}
		}
		pool.Close()
	}()

	slots := make([]*model.QuestionResult, total)
	done := 0
	for result := range pool.Results() {
		qr := result.(*QuestionResult)
		slots[qr.Index*len(b.pipelines)+qr.Order] = &qr.Result
		done++
		if b.progress != nil {
			b.progress(done, total)
		}
	}

	// Jobs dropped by cancellation leave empty slots
	for _, r := range slots {
		if r != nil {
			report.Results = append(report.Results, *r)
		}
	}
	report.Summaries = b.scorer.Summarize(report.Results)

	return report
}

// ProcessFile reads questions from a file and evaluates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) (*model.BatchReport, error) {
	questions, err := ReadQuestionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	return b.ProcessQuestions(ctx, questions), nil
}

// ReadQuestionsFromFile reads JSONL questions, one object per line
// Questions without an ID are numbered by position
func ReadQuestionsFromFile(filePath string) ([]model.Question, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var questions []model.Question

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var q model.Question
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("line %d: question is required", lineNo)
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", len(questions))
		}
		questions = append(questions, q)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return questions, nil
}

// ReadLines reads non-empty, non-comment lines from a file, keeping order and duplicates
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
