// Package blugeengine registers github.com/blugelabs/bluge as the "bluge"
// backend.
package blugeengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/index"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

const (
	Name       = "bluge"
	ModulePath = "github.com/blugelabs/bluge"

	titleField = "title"
	bodyField  = "body"
	idField    = "_id"

	// documents buffered before a batch is applied to the writer
	batchSize = 1000
)

func init() {
	backend.Register(Name, New)
}

type Engine struct {
	path   string
	logger *slog.Logger
}

var _ backend.Engine = (*Engine)(nil)

func New(path string, opts backend.Options) (backend.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		path:   path,
		logger: logger.With("engine", Name),
	}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Version() string {
	return backend.ModuleVersion(ModulePath)
}

func (e *Engine) OpenWriter(ctx context.Context, mode backend.OpenMode) (backend.Writer, error) {
	if mode == backend.ModeCreate {
		if err := os.RemoveAll(e.path); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "removing index %s", e.path)
		}
	}
	w, err := bluge.OpenWriter(bluge.DefaultConfig(e.path))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndex, err, "opening bluge writer at %s", e.path)
	}
	e.logger.Debug("writer opened", "path", e.path, "mode", mode)
	return &writer{w: w, batch: bluge.NewBatch()}, nil
}

func (e *Engine) OpenReader(ctx context.Context) (backend.Reader, error) {
	r, err := e.openReader()
	if err != nil {
		return nil, err
	}
	return &reader{r: r}, nil
}

func (e *Engine) openReader() (*bluge.Reader, error) {
	if _, err := os.Stat(e.path); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "opening index %s", e.path)
	}
	r, err := bluge.OpenReader(bluge.DefaultConfig(e.path))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndex, err, "opening bluge reader at %s", e.path)
	}
	return r, nil
}

func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	r, err := e.openReader()
	if err != nil {
		return backend.Stats{}, err
	}
	defer r.Close()

	count, err := r.Count()
	if err != nil {
		return backend.Stats{}, apperrors.Wrap(apperrors.ErrIndex, err, "counting documents")
	}
	terms := make(map[string]struct{})
	for _, field := range []string{titleField, bodyField} {
		if err := collectTerms(r, field, terms); err != nil {
			return backend.Stats{}, err
		}
	}
	files, err := listFiles(e.path)
	if err != nil {
		return backend.Stats{}, err
	}
	return backend.Stats{
		Docs:  int(count),
		Terms: len(terms),
		Files: files,
	}, nil
}

func collectTerms(r *bluge.Reader, field string, into map[string]struct{}) error {
	it, err := r.DictionaryIterator(field, nil, nil, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "iterating %s dictionary", field)
	}
	defer it.Close()
	entry, err := it.Next()
	for err == nil && entry != nil {
		into[entry.Term()] = struct{}{}
		entry, err = it.Next()
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "iterating %s dictionary", field)
	}
	return nil
}

// listFiles walks the index directory since bluge nests segment files.
func listFiles(root string) ([]backend.FileStat, error) {
	files := make([]backend.FileStat, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, backend.FileStat{Name: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "listing %s", root)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

type writer struct {
	w       *bluge.Writer
	batch   *index.Batch
	pending int
	closed  bool
}

func (w *writer) Add(ctx context.Context, doc backend.Document) error {
	if w.closed {
		return apperrors.New(apperrors.ErrIndex, "writer is closed")
	}
	d := bluge.NewDocument(doc.ID).
		AddField(bluge.NewTextField(titleField, doc.Title).StoreValue()).
		AddField(bluge.NewTextField(bodyField, doc.Body).StoreValue().SearchTermPositions())
	w.batch.Insert(d)
	w.pending++
	if w.pending >= batchSize {
		return w.flush()
	}
	return nil
}

func (w *writer) flush() error {
	if w.pending == 0 {
		return nil
	}
	if err := w.w.Batch(w.batch); err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "applying batch of %d documents", w.pending)
	}
	w.batch.Reset()
	w.pending = 0
	return nil
}

// Close applies buffered documents and returns the count of the committed
// snapshot. The bluge writer is closed on every path.
func (w *writer) Close() (int, error) {
	if w.closed {
		return 0, apperrors.New(apperrors.ErrIndex, "writer already closed")
	}
	w.closed = true
	count, err := w.commit()
	if closeErr := w.w.Close(); closeErr != nil && err == nil {
		err = apperrors.Wrap(apperrors.ErrIndex, closeErr, "closing bluge writer")
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (w *writer) commit() (int, error) {
	if err := w.flush(); err != nil {
		return 0, err
	}
	r, err := w.w.Reader()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIndex, err, "opening snapshot reader")
	}
	defer r.Close()
	count, err := r.Count()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIndex, err, "counting documents")
	}
	return int(count), nil
}

type reader struct {
	r *bluge.Reader
}

func (r *reader) Search(ctx context.Context, query string, limit int) ([]backend.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrQuery, "empty query")
	}
	q := bluge.NewMatchQuery(query).SetField(bodyField)
	dmi, err := r.r.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrQuery, err, "searching %q", query)
	}
	hits := make([]backend.Hit, 0, limit)
	match, err := dmi.Next()
	for err == nil && match != nil {
		hit := backend.Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				hit.DocID = string(value)
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = dmi.Next()
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndex, err, "iterating matches for %q", query)
	}
	return hits, nil
}

func (r *reader) Documents(ctx context.Context, fn func(backend.StoredDocument) error) error {
	dmi, err := r.r.Search(ctx, bluge.NewAllMatches(bluge.NewMatchAllQuery()))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "scanning stored documents")
	}
	match, err := dmi.Next()
	for err == nil && match != nil {
		var doc backend.StoredDocument
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case idField:
				doc.ID = string(value)
			case titleField:
				doc.Title = string(value)
			case bodyField:
				doc.Body = string(value)
			}
			return true
		})
		if err != nil {
			return apperrors.Wrap(apperrors.ErrIndex, err, "loading stored fields")
		}
		if err := fn(doc); err != nil {
			return fmt.Errorf("visiting %s: %w", doc.ID, err)
		}
		match, err = dmi.Next()
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIndex, err, "scanning stored documents")
	}
	return nil
}

func (r *reader) Count() (int, error) {
	n, err := r.r.Count()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIndex, err, "counting documents")
	}
	return int(n), nil
}

func (r *reader) Close() error {
	return r.r.Close()
}
