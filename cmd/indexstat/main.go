// Command indexstat prints document and term counts, the file listing of an
// index and, for the native engine, per-segment counts.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
)

func main() {
	harness.Main("indexstat", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("indexstat", stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	engineName := fs.String("engine", "", "engine that wrote the index")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: indexstat [-engine native] <index-dir>")
		fs.PrintDefaults()
	}
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return apperrors.Newf(apperrors.ErrArgument, "expected one index directory, got %d arguments", fs.NArg())
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *engineName != "" {
		cfg.Index.Engine = *engineName
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	engine, err := backend.Open(cfg.Index.Engine, fs.Arg(0), backend.Options{
		SegmentMaxSize: cfg.Index.SegmentMaxSize,
		Logger:         logger.WithComponent("indexstat"),
	})
	if err != nil {
		return err
	}
	stats, err := engine.Stats(ctx)
	if err != nil {
		return err
	}
	printStats(stdout, engine, stats)
	return nil
}

func printStats(w io.Writer, engine backend.Engine, stats backend.Stats) {
	fmt.Fprintf(w, "Engine: %s (%s)\n", engine.Name(), engine.Version())
	fmt.Fprintf(w, "Documents: %d\n", stats.Docs)
	fmt.Fprintf(w, "Terms: %d\n", stats.Terms)
	fmt.Fprintln(w, "Files:")
	var total int64
	for _, f := range stats.Files {
		fmt.Fprintf(w, "%10d   %s\n", f.Size, f.Name)
		total += f.Size
	}
	fmt.Fprintf(w, "%10d   total\n", total)
	if len(stats.Segments) == 0 {
		return
	}
	fmt.Fprintln(w, "Segments:")
	for _, seg := range stats.Segments {
		fmt.Fprintf(w, "%10d docs %10d terms   %s\n", seg.Docs, seg.Terms, seg.Name)
	}
}
