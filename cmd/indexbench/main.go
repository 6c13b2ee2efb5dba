// Command indexbench times indexing the corpus into the selected engine.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/workload"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
)

func main() {
	harness.Main("indexbench", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("indexbench", stderr)
	common := harness.BindCommon(fs)
	docs := fs.Int("docs", 0, "number of documents to index per trial (0 = all)")
	increment := fs.Int("increment", 0, "reopen the writer every N documents (0 = never)")
	corpusDir := fs.String("corpus", "", "corpus directory")
	marker := fs.String("marker", "", "substring a document path must contain")
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if err := harness.NoArgs(fs); err != nil {
		return err
	}
	cfg, err := harness.LoadConfig(fs, common, func(cfg *config.Config, name string) {
		switch name {
		case "docs":
			cfg.Bench.Docs = *docs
		case "increment":
			cfg.Bench.Increment = *increment
		case "corpus":
			cfg.Corpus.Dir = *corpusDir
		case "marker":
			cfg.Corpus.Marker = *marker
		}
	})
	if err != nil {
		return err
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	c := corpus.New(cfg.Corpus)
	paths, err := c.List()
	if err != nil {
		return err
	}

	ctx, session, err := harness.Start(ctx, cfg, "index", "docs", stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	engineName := session.Engine.Name()
	work := &workload.Index{
		Engine:    session.Engine,
		Corpus:    c,
		Paths:     paths,
		MaxDocs:   cfg.Bench.Docs,
		Increment: cfg.Bench.Increment,
		Logger:    logger.FromContext(ctx).With("component", "index-workload"),
		OnReopen: func(int) {
			session.Metrics.WriterReopened(engineName)
		},
	}
	if err := work.Validate(); err != nil {
		return err
	}

	title := fmt.Sprintf("Indexing %d docs into %s (%s), reopening every %d",
		work.Docs(), engineName, session.Engine.Version(), work.EffectiveIncrement())
	records, err := session.Trials(ctx, title, work.Run)
	if err != nil {
		return err
	}
	_, err = session.Finish(ctx, records, nil)
	return err
}
