// Command searchbench times a fixed set of term queries against an index
// built by indexbench.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/workload"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
)

func main() {
	harness.Main("searchbench", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("searchbench", stderr)
	common := harness.BindCommon(fs)
	iterations := fs.Int("iterations", workload.DefaultIterations, "times each term is queried per trial")
	terms := fs.String("terms", "", "comma-separated query terms")
	limit := fs.Int("limit", workload.DefaultLimit, "hits requested per query")
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if err := harness.NoArgs(fs); err != nil {
		return err
	}
	cfg, err := harness.LoadConfig(fs, common, func(cfg *config.Config, name string) {
		switch name {
		case "iterations":
			cfg.Search.Iterations = *iterations
		case "limit":
			cfg.Search.Limit = *limit
		case "terms":
			cfg.Search.Terms = config.SplitList(*terms)
		}
	})
	if err != nil {
		return err
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, session, err := harness.Start(ctx, cfg, "search", "queries", stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	reader, err := session.Engine.OpenReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	work := &workload.Search{
		Reader:     reader,
		Terms:      cfg.Search.Terms,
		Iterations: cfg.Search.Iterations,
		Limit:      cfg.Search.Limit,
	}
	if err := work.Validate(); err != nil {
		return err
	}

	title := fmt.Sprintf("Searching %d terms x %d iterations, top %d, on %s (%s)",
		len(work.Terms), work.Iterations, work.Limit, session.Engine.Name(), session.Engine.Version())
	records, err := session.Trials(ctx, title, work.Run)
	if err != nil {
		return err
	}
	_, err = session.Finish(ctx, records,
		map[string]int64{"total_found": work.TotalFound},
		fmt.Sprintf("Total found: %d", work.TotalFound),
	)
	return err
}
