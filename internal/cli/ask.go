package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/pipeline"
)

var (
	askClaim    string
	askPipeline string
	askTrace    bool
	askTimeout  time.Duration
)

// askCmd answers one question
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the corpus",
	Long: `Ask builds the index over the corpus and answers one question.

With --claim, the nli and subclaim pipelines keep only passages that entail
the claim (or, for subclaim, any of its sub-claims).

Example:
  entailrag ask "Are Giuseppe Verdi and Ambroise Thomas both opera composers?" \
    --claim "Giuseppe Verdi and Ambroise Thomas are both opera composers." \
    --corpus hotpot_dev.json --pipeline all --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askClaim, "claim", "", "claim to verify retrieved evidence against")
	askCmd.Flags().StringVar(&askPipeline, "pipeline", "", "pipeline: baseline, nli, subclaim or all (default: pipeline.variant)")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "print the full trace as JSON")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 5*time.Minute, "overall timeout")
	addCorpusFlags(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCorpusFlags(cmd, cfg)
	variant := cfg.Pipeline.Variant
	if askPipeline != "" {
		variant = askPipeline
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	a, err := compose(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	pipelines, err := a.pipelines(variant)
	if err != nil {
		return err
	}

	traces := make([]*model.Trace, 0, len(pipelines))
	for _, p := range pipelines {
		trace, err := p.AnswerWithTrace(ctx, question, askClaim)
		if err != nil {
			if pipeline.IsProviderFailure(err) {
				return fmt.Errorf("provider failure: %w", err)
			}
			return err
		}
		traces = append(traces, trace)
	}

	if askTrace {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(traces) == 1 {
			return enc.Encode(traces[0])
		}
		return enc.Encode(traces)
	}

	for _, t := range traces {
		if len(traces) > 1 {
			fmt.Printf("[%s] ", t.Pipeline)
		}
		fmt.Println(t.Answer)
		if verbose {
			fmt.Fprintf(os.Stderr, "  kept %d/%d passages (fallback: %v)\n", len(t.PassagesAfter), len(t.PassagesBefore), t.FallbackUsed)
		}
	}
	return nil
}
