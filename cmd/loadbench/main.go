// Command loadbench times scanning every stored document of an index.
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
	harness.Main("loadbench", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("loadbench", stderr)
	common := harness.BindCommon(fs)
	passes := fs.Int("passes", workload.DefaultPasses, "full scans per trial")
	fields := fs.String("fields", "all", "stored fields to read: none, title, body or all")
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if err := harness.NoArgs(fs); err != nil {
		return err
	}
	cfg, err := harness.LoadConfig(fs, common, func(cfg *config.Config, name string) {
		switch name {
		case "passes":
			cfg.Load.Passes = *passes
		case "fields":
			cfg.Load.Fields = *fields
		}
	})
	if err != nil {
		return err
	}
	field, err := workload.ParseField(cfg.Load.Fields)
	if err != nil {
		return err
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, session, err := harness.Start(ctx, cfg, "load", "docs", stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	reader, err := session.Engine.OpenReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	count, err := reader.Count()
	if err != nil {
		return err
	}
	work := &workload.Load{Reader: reader, Passes: cfg.Load.Passes, Fields: field}
	if err := work.Validate(); err != nil {
		return err
	}

	title := fmt.Sprintf("Loading %d docs x %d passes (fields: %s) from %s (%s)",
		count, work.Passes, field, session.Engine.Name(), session.Engine.Version())
	records, err := session.Trials(ctx, title, work.Run)
	if err != nil {
		return err
	}
	_, err = session.Finish(ctx, records,
		map[string]int64{"bytes_read": work.Bytes},
		session.Reporter.Sprintf("Bytes read: %d", work.Bytes),
	)
	return err
}
