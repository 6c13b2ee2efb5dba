// Package indexer is the in-repo segment engine: documents are buffered in a
// MemoryIndex and flushed to immutable .spdx segment files that carry the
// term dictionary, postings and a stored-document table.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
)

// Mode selects how Open treats segments already on disk.
type Mode int

const (
	// Create deletes existing segments.
	Create Mode = iota
	// Append loads existing segments and adds to them.
	Append
)

// SegmentInfo describes one segment file for diagnostics.
type SegmentInfo struct {
	Name  string
	Size  int64
	Docs  int
	Terms int
}

type Engine struct {
	memIndex     *index.MemoryIndex
	writer       *segment.Writer
	readers      []*segment.Reader
	readerMu     sync.RWMutex
	cfg          config.IndexConfig
	logger       *slog.Logger
	docLengths   map[string]int
	docLengthsMu sync.RWMutex
	totalTokens  int64
}

func Open(cfg config.IndexConfig, mode Mode) (*Engine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("index path is empty")
	}
	if mode == Create {
		if err := removeSegments(cfg.Path); err != nil {
			return nil, fmt.Errorf("clearing index directory: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		memIndex:   index.NewMemoryIndex(),
		writer:     segment.NewWriter(cfg.Path),
		cfg:        cfg,
		logger:     slog.Default().With("component", "indexer"),
		docLengths: make(map[string]int),
	}
	if err := e.loadExistingSegments(); err != nil {
		e.closeReaders()
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	return e, nil
}

// WithLogger replaces the engine's logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger.With("component", "indexer")
	return e
}

func (e *Engine) IndexDocument(docID string, title string, body string) error {
	length := e.memIndex.AddDocument(docID, title, body)
	e.recordLength(docID, length)

	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", length,
		"mem_size", e.memIndex.Size(),
	)
	if e.cfg.SegmentMaxSize > 0 && e.memIndex.Size() >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", e.memIndex.Size(),
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

func (e *Engine) recordLength(docID string, length int) {
	e.docLengthsMu.Lock()
	defer e.docLengthsMu.Unlock()
	if old, exists := e.docLengths[docID]; exists {
		e.totalTokens -= int64(old)
	}
	e.docLengths[docID] = length
	e.totalTokens += int64(length)
}

func (e *Engine) Flush() error {
	docs := e.memIndex.Docs()
	if len(docs) == 0 {
		return nil
	}
	segmentName, err := e.writer.Write(e.memIndex.Snapshot(), docs)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.cfg.Path, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	active := len(e.readers)
	e.readerMu.Unlock()
	e.memIndex.Reset()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return nil
}

// Postings looks up an already normalised term in memory and every segment.
func (e *Engine) Postings(term string) (index.PostingList, error) {
	allPostings := e.memIndex.Search(term)
	for _, reader := range e.snapshotReaders() {
		postings, err := reader.Search(term)
		if err != nil {
			return nil, fmt.Errorf("searching segment %s: %w", filepath.Base(reader.Path()), err)
		}
		allPostings = append(allPostings, postings...)
	}
	return deduplicatePostings(allPostings), nil
}

func (e *Engine) snapshotReaders() []*segment.Reader {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	return readers
}

func (e *Engine) DocLength(docID string) int {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	return e.docLengths[docID]
}

func (e *Engine) AvgDocLength() float64 {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	if len(e.docLengths) == 0 {
		return 0
	}
	return float64(e.totalTokens) / float64(len(e.docLengths))
}

// DocCount is the number of distinct documents, flushed or buffered.
func (e *Engine) DocCount() int {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	return len(e.docLengths)
}

// Terms counts distinct terms across all segments and the memory index.
func (e *Engine) Terms() int {
	seen := make(map[string]struct{})
	for _, reader := range e.snapshotReaders() {
		reader.EachTerm(func(term string) { seen[term] = struct{}{} })
	}
	for _, entry := range e.memIndex.Snapshot() {
		seen[entry.Term] = struct{}{}
	}
	return len(seen)
}

func (e *Engine) Segments() []SegmentInfo {
	readers := e.snapshotReaders()
	infos := make([]SegmentInfo, 0, len(readers))
	for _, r := range readers {
		infos = append(infos, SegmentInfo{
			Name:  filepath.Base(r.Path()),
			Size:  r.Size(),
			Docs:  int(r.DocCount()),
			Terms: r.Terms(),
		})
	}
	return infos
}

// StoredDocuments visits every stored document, segments first in flush
// order and then the unflushed buffer.
func (e *Engine) StoredDocuments(ctx context.Context, fn func(index.StoredDoc) error) error {
	for _, reader := range e.snapshotReaders() {
		for _, entry := range reader.Docs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := reader.Document(entry)
			if err != nil {
				return err
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
	}
	for _, doc := range e.memIndex.Docs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered documents and releases segment files. The segment
// readers are closed even when the flush fails.
func (e *Engine) Close() error {
	flushErr := e.Flush()
	if flushErr != nil {
		e.logger.Error("final flush on close failed", "error", flushErr)
	}
	e.closeReaders()
	if flushErr != nil {
		return fmt.Errorf("final flush: %w", flushErr)
	}
	return nil
}

func (e *Engine) closeReaders() {
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
}

func (e *Engine) loadExistingSegments() error {
	segFiles, err := listSegments(e.cfg.Path)
	if err != nil {
		return err
	}
	for _, name := range segFiles {
		path := filepath.Join(e.cfg.Path, name)
		reader, err := segment.OpenReader(path)
		if err != nil {
			return fmt.Errorf("segment %s: %w", name, err)
		}
		e.readers = append(e.readers, reader)
		for _, doc := range reader.Docs() {
			e.recordLength(doc.ID, doc.Length)
		}
		e.logger.Debug("loaded existing segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	e.logger.Debug("segment recovery complete", "segments_loaded", len(e.readers))
	return nil
}

func listSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)
	return segFiles, nil
}

// removeSegments deletes segment and temp files only, leaving anything else
// in the directory alone.
func removeSegments(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading data directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, segment.Extension) || strings.HasSuffix(name, segment.Extension+".tmp") {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("removing %s: %w", name, err)
			}
		}
	}
	return nil
}

func deduplicatePostings(postings index.PostingList) index.PostingList {
	if len(postings) <= 1 {
		return postings
	}
	seen := make(map[string]int)
	result := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if idx, exists := seen[p.DocID]; exists {
			if p.Frequency > result[idx].Frequency {
				result[idx] = p
			}
		} else {
			seen[p.DocID] = len(result)
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
