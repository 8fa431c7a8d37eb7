package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entailrag/internal/claim"
	"github.com/ppiankov/entailrag/internal/corpus"
	"github.com/ppiankov/entailrag/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

// serveCmd exposes the pipelines over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve retrieval, filtering and answering over HTTP",
	Long: `Serve builds the index once and exposes it over a JSON API:

  POST /api/retrieve   {query, k}
  POST /api/decompose  {claim}
  POST /api/filter     {claim, passages, mode, threshold}
  POST /api/answer     {question, claim, pipeline}
  POST /api/analyze    {question, claim}
  GET  /metrics
  GET  /healthz

Example:
  entailrag serve --corpus hotpot_dev.json --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the index when the corpus file or directory changes")
	addCorpusFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCorpusFlags(cmd, cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	a, err := compose(ctx, cfg, logger)
	if err != nil {
		return err
	}
	pipelines, err := a.pipelines("all")
	if err != nil {
		return err
	}

	if serveWatch {
		if err := watchCorpus(ctx, a); err != nil {
			return fmt.Errorf("watch corpus: %w", err)
		}
	}

	// The configured variant answers requests that name no pipeline
	for i, p := range pipelines {
		if p.Name() == cfg.Pipeline.Variant {
			pipelines[0], pipelines[i] = pipelines[i], pipelines[0]
			break
		}
	}

	srv := server.New(server.Deps{
		Retriever:  a.index,
		Filter:     a.filter,
		Decomposer: claim.NewDecomposer(),
		Pipelines:  pipelines,
		Metrics:    a.metrics,
		Logger:     logger,
	}, server.Options{
		TopK:      cfg.Pipeline.TopK,
		Threshold: cfg.NLI.Threshold,
	})

	fmt.Fprintf(os.Stderr, "✓ Serving on %s\n", cfg.Server.Addr)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// watchCorpus rebuilds the index in the background whenever the corpus changes
func watchCorpus(ctx context.Context, a *app) error {
	w, err := corpus.NewWatcher(a.cfg.Corpus.Path)
	if err != nil {
		return err
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer func() { _ = w.Close() }()
		for range changes {
			if err := a.rebuildIndex(ctx); err != nil {
				a.logger.Warn("index rebuild failed; keeping previous index", "error", err)
				continue
			}
			a.logger.Info("index rebuilt", "chunks", a.index.Current().Len())
		}
	}()

	fmt.Fprintf(os.Stderr, "✓ Watching %s for changes\n", a.cfg.Corpus.Path)
	return nil
}
