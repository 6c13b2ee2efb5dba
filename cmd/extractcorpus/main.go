// Command extractcorpus converts the Reuters-21578 SGML distribution into
// the two-level article corpus the benchmarks read.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/harness"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
)

func main() {
	harness.Main("extractcorpus", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("extractcorpus", stderr)
	out := fs.String("out", "corpus", "output corpus directory")
	logLevel := fs.String("log-level", "info", "log level")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: extractcorpus [-out corpus] <reuters-sgml-dir>")
		fs.PrintDefaults()
	}
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return apperrors.Newf(apperrors.ErrArgument, "expected one source directory, got %d arguments", fs.NArg())
	}
	logger.SetupWriter(stderr, *logLevel, "text")

	n, err := corpus.ExtractReuters(ctx, fs.Arg(0), *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Extracted %d articles into %s\n", n, *out)
	return nil
}
