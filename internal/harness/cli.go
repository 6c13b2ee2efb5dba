// Package harness is the glue shared by the benchmark commands: flag and
// config resolution, engine selection, and the run session that ties the
// trial runner to reporting, metrics, tracing and result publishing.
package harness

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	// engines under test
	_ "github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend/blugeengine"
	_ "github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend/native"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// Command is a testable main.
type Command func(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error

// Main runs cmd with the process arguments and exits with the code its
// error maps to. SIGINT and SIGTERM cancel the context.
func Main(name string, cmd Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(Exit(name, err, os.Stderr))
}

// Exit prints err and returns the process exit code. -h is not an error.
func Exit(name string, err error, stderr io.Writer) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(stderr, "%s: %v\n", name, err)
	return apperrors.ExitCode(err)
}

// NewFlagSet returns a ContinueOnError flag set writing usage to stderr.
func NewFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// Parse parses args, classifying any failure as an argument error.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return apperrors.Wrap(apperrors.ErrArgument, err, "parsing %s flags", fs.Name())
	}
	return nil
}

// NoArgs rejects positional arguments left after flag parsing.
func NoArgs(fs *flag.FlagSet) error {
	if fs.NArg() > 0 {
		return apperrors.Newf(apperrors.ErrArgument, "unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// CommonFlags are accepted by every benchmark command.
type CommonFlags struct {
	ConfigPath string
	Engine     string
	Index      string
	Reps       int
}

func BindCommon(fs *flag.FlagSet) *CommonFlags {
	c := &CommonFlags{}
	fs.StringVar(&c.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&c.Engine, "engine", "", "engine under test ("+strings.Join(backend.Engines(), ", ")+")")
	fs.StringVar(&c.Index, "index", "", "index directory")
	fs.IntVar(&c.Reps, "reps", 1, "number of timed repetitions")
	return c
}

// LoadConfig resolves configuration as flag > env > file > default. apply
// is called for each flag the user set explicitly, after the common ones
// have been applied.
func LoadConfig(fs *flag.FlagSet, common *CommonFlags, apply func(cfg *config.Config, flagName string)) (*config.Config, error) {
	cfg, err := config.Load(common.ConfigPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			cfg.Index.Engine = common.Engine
		case "index":
			cfg.Index.Path = common.Index
		case "reps":
			cfg.Bench.Reps = common.Reps
		}
		if apply != nil {
			apply(cfg, f.Name)
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
