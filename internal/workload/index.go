// Package workload implements the timed units of work the benchmarks run:
// indexing the corpus, querying a fixed term set, and scanning stored
// documents.
package workload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// Index adds the first MaxDocs corpus documents to a fresh index. Every
// Increment documents the writer is closed and reopened in append mode.
type Index struct {
	Engine    backend.Indexer
	Corpus    *corpus.Corpus
	Paths     []string
	MaxDocs   int
	Increment int
	Logger    *slog.Logger
	// OnReopen is called after each mid-run writer reopen.
	OnReopen func(count int)
}

// Docs is the number of documents one trial indexes.
func (w *Index) Docs() int {
	if w.MaxDocs > 0 && w.MaxDocs < len(w.Paths) {
		return w.MaxDocs
	}
	return len(w.Paths)
}

// EffectiveIncrement resolves an Increment of 0 to Docs()+1, which never
// triggers a reopen.
func (w *Index) EffectiveIncrement() int {
	if w.Increment == 0 {
		return w.Docs() + 1
	}
	return w.Increment
}

func (w *Index) Validate() error {
	if w.Engine == nil || w.Corpus == nil {
		return apperrors.New(apperrors.ErrArgument, "index workload needs an engine and a corpus")
	}
	if w.MaxDocs < 0 {
		return apperrors.Newf(apperrors.ErrArgument, "docs must be >= 0, got %d", w.MaxDocs)
	}
	if w.Increment < 0 {
		return apperrors.Newf(apperrors.ErrArgument, "increment must be >= 0, got %d", w.Increment)
	}
	return nil
}

func (w *Index) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default().With("component", "index-workload")
}

// Run performs one trial and returns the committed document count. The live
// writer is closed on every return path.
func (w *Index) Run(ctx context.Context) (committed int, err error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	docs := w.Docs()
	inc := w.EffectiveIncrement()
	logger := w.logger()

	writer, err := w.Engine.OpenWriter(ctx, backend.ModeCreate)
	if err != nil {
		return 0, fmt.Errorf("opening writer: %w", err)
	}
	defer func() {
		if err != nil && writer != nil {
			if _, closeErr := writer.Close(); closeErr != nil {
				logger.Warn("closing writer after failure", "error", closeErr)
			}
		}
	}()

	count := 0
	for _, path := range w.Paths[:docs] {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		doc, err := w.Corpus.Parse(path)
		if err != nil {
			return 0, err
		}
		if err := writer.Add(ctx, backend.Document{ID: path, Title: doc.Title, Body: doc.Body}); err != nil {
			return 0, fmt.Errorf("adding document %d: %w", count+1, err)
		}
		count++
		logger.Debug("document added", "doc_id", path, "count", count)
		if count >= docs {
			break
		}
		if count%inc == 0 {
			closed := writer
			writer = nil
			if _, err := closed.Close(); err != nil {
				return 0, fmt.Errorf("closing writer at %d documents: %w", count, err)
			}
			writer, err = w.Engine.OpenWriter(ctx, backend.ModeAppend)
			if err != nil {
				return 0, fmt.Errorf("reopening writer at %d documents: %w", count, err)
			}
			logger.Info("writer reopened", "count", count, "increment", inc)
			if w.OnReopen != nil {
				w.OnReopen(count)
			}
		}
	}

	final := writer
	writer = nil
	committed, err = final.Close()
	if err != nil {
		return 0, fmt.Errorf("closing writer: %w", err)
	}
	return committed, nil
}
