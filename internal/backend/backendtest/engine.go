// Package backendtest provides an in-memory Engine that records how the
// workloads drive it.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// ErrClosed is returned when a closed writer or reader is used.
var ErrClosed = errors.New("backendtest: use after close")

type Engine struct {
	mu        sync.Mutex
	committed []backend.StoredDocument

	// Opens records the mode of every OpenWriter call.
	Opens []backend.OpenMode
	// WriterCloses counts Close calls on writers.
	WriterCloses int
	// LiveWriters is the number of writers opened but not closed.
	LiveWriters int
	// Added counts successful Add calls.
	Added int
	// Queries counts Search calls.
	Queries int
	// ReaderCloses counts Close calls on readers.
	ReaderCloses int

	// FailAddAt makes the n-th Add (1-based) fail with AddErr.
	FailAddAt int
	AddErr    error
	// OpenErr is returned by OpenWriter and OpenReader when set.
	OpenErr error
}

var _ backend.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string    { return "backendtest" }
func (e *Engine) Version() string { return "test" }

// Seed commits documents directly.
func (e *Engine) Seed(docs ...backend.StoredDocument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.committed = append(e.committed, docs...)
}

func (e *Engine) OpenWriter(ctx context.Context, mode backend.OpenMode) (backend.Writer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	e.Opens = append(e.Opens, mode)
	e.LiveWriters++
	if mode == backend.ModeCreate {
		e.committed = nil
	}
	return &writer{engine: e}, nil
}

func (e *Engine) OpenReader(ctx context.Context) (backend.Reader, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	docs := make([]backend.StoredDocument, len(e.committed))
	copy(docs, e.committed)
	return &reader{engine: e, docs: docs}, nil
}

func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	terms := make(map[string]struct{})
	for _, d := range e.committed {
		for _, w := range strings.Fields(strings.ToLower(d.Title + " " + d.Body)) {
			terms[w] = struct{}{}
		}
	}
	return backend.Stats{Docs: len(e.committed), Terms: len(terms)}, nil
}

// Committed returns the IDs of committed documents in insertion order.
func (e *Engine) Committed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(e.committed))
	for i, d := range e.committed {
		ids[i] = d.ID
	}
	return ids
}

type writer struct {
	engine  *Engine
	pending []backend.StoredDocument
	closed  bool
}

func (w *writer) Add(ctx context.Context, doc backend.Document) error {
	if w.closed {
		return ErrClosed
	}
	e := w.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailAddAt > 0 && e.Added+1 == e.FailAddAt {
		err := e.AddErr
		if err == nil {
			err = errors.New("backendtest: add failed")
		}
		return apperrors.Wrap(apperrors.ErrIndex, err, "adding %s", doc.ID)
	}
	e.Added++
	w.pending = append(w.pending, backend.StoredDocument{ID: doc.ID, Title: doc.Title, Body: doc.Body})
	return nil
}

func (w *writer) Close() (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	w.closed = true
	e := w.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.WriterCloses++
	e.LiveWriters--
	e.committed = append(e.committed, w.pending...)
	w.pending = nil
	return len(e.committed), nil
}

type reader struct {
	engine *Engine
	docs   []backend.StoredDocument
	closed bool
}

// Search matches documents whose lowercased body contains the query.
func (r *reader) Search(ctx context.Context, query string, limit int) ([]backend.Hit, error) {
	if r.closed {
		return nil, ErrClosed
	}
	r.engine.mu.Lock()
	r.engine.Queries++
	r.engine.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, apperrors.New(apperrors.ErrQuery, "empty query")
	}
	hits := make([]backend.Hit, 0)
	for _, d := range r.docs {
		if n := strings.Count(strings.ToLower(d.Body), q); n > 0 {
			hits = append(hits, backend.Hit{DocID: d.ID, Score: float64(n)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *reader) Documents(ctx context.Context, fn func(backend.StoredDocument) error) error {
	if r.closed {
		return ErrClosed
	}
	for _, d := range r.docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return fmt.Errorf("visiting %s: %w", d.ID, err)
		}
	}
	return nil
}

func (r *reader) Count() (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	return len(r.docs), nil
}

func (r *reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	r.engine.mu.Lock()
	r.engine.ReaderCloses++
	r.engine.mu.Unlock()
	return nil
}
