package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entailrag/internal/corpus"
	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/report"
	"github.com/ppiankov/entailrag/internal/score"
	"github.com/ppiankov/entailrag/internal/worker"
)

var (
	concurrency     int
	batchOut        string
	batchMarkdown   string
	batchMetricsOut string
	batchTimeout    time.Duration
	batchPipeline   string
	batchFormat     string
	batchClaims     string
	batchLimit      int
	batchTraces     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <questions>",
	Short: "Evaluate pipelines over a question set in parallel",
	Long: `Batch runs every pipeline on every question concurrently:
- Read questions (JSONL, or HotpotQA records with --questions-format hotpot)
- Answer each question with baseline, nli and subclaim pipelines
- Score answers against gold answers (exact match and token F1)
- Write per-question results and a per-pipeline summary

Example:
  entailrag batch questions.jsonl --corpus hotpot_dev.json
  entailrag batch hotpot_dev.json --questions-format hotpot --claims claims.txt \
    --corpus hotpot_dev.json --concurrency 8 --out results.json --metrics-out run.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOut, "out", "results.json", "output JSON path")
	batchCmd.Flags().StringVar(&batchMarkdown, "md", "", "output Markdown summary path (optional)")
	batchCmd.Flags().StringVar(&batchMetricsOut, "metrics-out", "", "write Prometheus metrics in text format (optional)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchPipeline, "pipeline", "all", "pipeline: baseline, nli, subclaim or all")
	batchCmd.Flags().StringVar(&batchFormat, "questions-format", "jsonl", "question file format: jsonl or hotpot")
	batchCmd.Flags().StringVar(&batchClaims, "claims", "", "file with one claim per line, aligned with questions (optional)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "evaluate at most this many questions (0 = all)")
	batchCmd.Flags().BoolVar(&batchTraces, "traces", false, "include prompts and retrieved passages in the JSON output")
	addCorpusFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCorpusFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  entailrag Batch Evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Questions:  %s\n", file)
	fmt.Fprintf(os.Stderr, "  Corpus:     %s (%s)\n", cfg.Corpus.Path, cfg.Corpus.Format)
	fmt.Fprintf(os.Stderr, "  Pipelines:  %s\n", batchPipeline)
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Generator:  %s/%s\n", cfg.Generator.Provider, cfg.Generator.Model)
	fmt.Fprintf(os.Stderr, "  NLI:        %s (threshold %.2f)\n", cfg.NLI.Backend, cfg.NLI.Threshold)
	fmt.Fprintf(os.Stderr, "\n")

	questions, err := readQuestions(file, batchFormat, batchLimit)
	if err != nil {
		return err
	}
	if batchClaims != "" {
		claims, err := worker.ReadLines(batchClaims)
		if err != nil {
			return fmt.Errorf("read claims: %w", err)
		}
		if err := alignClaims(questions, claims); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d questions\n", len(questions))

	a, err := compose(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	pipelines, err := a.pipelines(batchPipeline)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Evaluating with %d workers...\n", cfg.Concurrency.Workers)
	processor := worker.NewBatchProcessor(pipelines, score.NewScorer(), cfg.Concurrency.Workers)
	processor.OnProgress(func(done, total int) {
		if verbose || done == total {
			fmt.Fprintf(os.Stderr, "\r  %d/%d runs", done, total)
		}
	})
	result := processor.ProcessQuestions(ctx, questions)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := report.NewRenderer(batchTraces)
	if err := renderer.RenderJSON(result, batchOut); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Results written to %s\n", batchOut)

	if batchMarkdown != "" {
		if err := renderer.RenderMarkdown(result, batchMarkdown); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Summary written to %s\n", batchMarkdown)
	}

	if batchMetricsOut != "" {
		if err := a.metrics.WriteTextfile(batchMetricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Metrics written to %s\n", batchMetricsOut)
	}

	renderer.RenderSummary(os.Stderr, result)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}

func readQuestions(path, format string, limit int) ([]model.Question, error) {
	var (
		questions []model.Question
		err       error
	)

	switch strings.ToLower(format) {
	case "", "jsonl":
		questions, err = worker.ReadQuestionsFromFile(path)
	case "hotpot", "hotpotqa":
		questions, err = corpus.LoadQuestions(path, limit)
	default:
		return nil, fmt.Errorf("unknown questions format: %q (supported: jsonl, hotpot)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

// alignClaims assigns claims[i] to questions[i]; counts must match
func alignClaims(questions []model.Question, claims []string) error {
	if len(claims) < len(questions) {
		return fmt.Errorf("claims file has %d lines for %d questions", len(claims), len(questions))
	}
	for i := range questions {
		questions[i].Claim = claims[i]
	}
	return nil
}
