package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/entailrag/internal/model"
)

// addCorpusFlags registers the flags shared by commands that build an index
func addCorpusFlags(cmd *cobra.Command) {
	cmd.Flags().String("corpus", "", "corpus file or directory (overrides corpus.path)")
	cmd.Flags().String("format", "", "corpus format: hotpot, html, urls (overrides corpus.format)")
	cmd.Flags().Int("max-records", 0, "limit corpus records (0 = config value)")
	cmd.Flags().Int("top-k", 0, "passages retrieved per question (default 2)")
	cmd.Flags().Float64("threshold", 0, "entailment confidence to exceed (default 0.60)")
	cmd.Flags().Bool("no-cache", false, "disable verdict and embedding cache")
}

// applyCorpusFlags copies explicitly set flags over the loaded config
func applyCorpusFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("corpus") {
		cfg.Corpus.Path, _ = flags.GetString("corpus")
	}
	if flags.Changed("format") {
		cfg.Corpus.Format, _ = flags.GetString("format")
	}
	if flags.Changed("max-records") {
		cfg.Corpus.MaxRecords, _ = flags.GetInt("max-records")
	}
	if flags.Changed("top-k") {
		cfg.Pipeline.TopK, _ = flags.GetInt("top-k")
	}
	if flags.Changed("threshold") {
		cfg.NLI.Threshold, _ = flags.GetFloat64("threshold")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
}
