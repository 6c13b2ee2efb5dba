// Package native registers the in-repo segment engine as the "native"
// backend.
package native

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

const Name = "native"

func init() {
	backend.Register(Name, New)
}

type Engine struct {
	cfg    config.IndexConfig
	logger *slog.Logger
}

var _ backend.Engine = (*Engine)(nil)

func New(path string, opts backend.Options) (backend.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg: config.IndexConfig{
			Engine:         Name,
			Path:           path,
			SegmentMaxSize: opts.SegmentMaxSize,
		},
		logger: logger.With("engine", Name),
	}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Version() string {
	return fmt.Sprintf("spdx v%d", segment.FormatVersion)
}

func (e *Engine) open(mode indexer.Mode) (*indexer.Engine, error) {
	eng, err := indexer.Open(e.cfg, mode)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndex, err, "opening native index at %s", e.cfg.Path)
	}
	return eng.WithLogger(e.logger), nil
}

func (e *Engine) OpenWriter(ctx context.Context, mode backend.OpenMode) (backend.Writer, error) {
	m := indexer.Append
	if mode == backend.ModeCreate {
		m = indexer.Create
	}
	eng, err := e.open(m)
	if err != nil {
		return nil, err
	}
	return &writer{engine: eng}, nil
}

func (e *Engine) OpenReader(ctx context.Context) (backend.Reader, error) {
	if err := e.requireIndex(); err != nil {
		return nil, err
	}
	eng, err := e.open(indexer.Append)
	if err != nil {
		return nil, err
	}
	return &reader{engine: eng, exec: executor.New(eng)}, nil
}

// Stats reports document and term counts plus every file in the index
// directory, sorted by name.
func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	if err := e.requireIndex(); err != nil {
		return backend.Stats{}, err
	}
	eng, err := e.open(indexer.Append)
	if err != nil {
		return backend.Stats{}, err
	}
	defer eng.Close()

	files, err := listFiles(e.cfg.Path)
	if err != nil {
		return backend.Stats{}, err
	}
	segments := eng.Segments()
	stats := backend.Stats{
		Docs:     eng.DocCount(),
		Terms:    eng.Terms(),
		Files:    files,
		Segments: make([]backend.SegmentStat, 0, len(segments)),
	}
	for _, seg := range segments {
		stats.Segments = append(stats.Segments, backend.SegmentStat(seg))
	}
	return stats, nil
}

func (e *Engine) requireIndex() error {
	info, err := os.Stat(e.cfg.Path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "opening index %s", e.cfg.Path)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrIO, "index path %s is not a directory", e.cfg.Path)
	}
	return nil
}

func listFiles(dir string) ([]backend.FileStat, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "listing %s", dir)
	}
	files := make([]backend.FileStat, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "stat %s", filepath.Join(dir, entry.Name()))
		}
		files = append(files, backend.FileStat{Name: entry.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

type writer struct {
	engine *indexer.Engine
	closed bool
}

func (w *writer) Add(ctx context.Context, doc backend.Document) error {
	if w.closed {
		return apperrors.New(apperrors.ErrIndex, "writer is closed")
	}
	if err := w.engine.IndexDocument(doc.ID, doc.Title, doc.Body); err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "adding %s", doc.ID)
	}
	return nil
}

func (w *writer) Close() (int, error) {
	if w.closed {
		return 0, apperrors.New(apperrors.ErrIndex, "writer already closed")
	}
	w.closed = true
	committed := w.engine.DocCount()
	if err := w.engine.Close(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIndex, err, "committing native index")
	}
	return committed, nil
}

type reader struct {
	engine *indexer.Engine
	exec   *executor.Executor
}

func (r *reader) Search(ctx context.Context, query string, limit int) ([]backend.Hit, error) {
	plan, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	res, err := r.exec.Execute(ctx, plan, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndex, err, "executing %q", query)
	}
	hits := make([]backend.Hit, len(res.Results))
	for i, doc := range res.Results {
		hits[i] = backend.Hit{DocID: doc.DocID, Score: doc.Score}
	}
	return hits, nil
}

func (r *reader) Documents(ctx context.Context, fn func(backend.StoredDocument) error) error {
	return r.engine.StoredDocuments(ctx, func(doc index.StoredDoc) error {
		return fn(backend.StoredDocument{ID: doc.ID, Title: doc.Title, Body: doc.Body})
	})
}

func (r *reader) Count() (int, error) {
	return r.engine.DocCount(), nil
}

func (r *reader) Close() error {
	return r.engine.Close()
}
