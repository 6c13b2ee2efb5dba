// Package backend defines the capabilities a search library must expose to be
// benchmarked: a writer for indexing, a reader for queries and stored-document
// scans, and index statistics. Engines register themselves by name and are
// linked into a binary with a blank import.
package backend

import (
	"context"
	"log/slog"
)

// OpenMode selects whether a writer starts a fresh index or extends the
// existing one.
type OpenMode int

const (
	ModeCreate OpenMode = iota
	ModeAppend
)

func (m OpenMode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Document is the unit handed to a Writer. ID is the corpus path.
type Document struct {
	ID    string
	Title string
	Body  string
}

type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// StoredDocument is a document as read back from the index.
type StoredDocument struct {
	ID    string
	Title string
	Body  string
}

type Indexer interface {
	OpenWriter(ctx context.Context, mode OpenMode) (Writer, error)
}

// Writer adds documents to an index. Close commits and reports how many
// documents the index holds afterwards.
type Writer interface {
	Add(ctx context.Context, doc Document) error
	Close() (committed int, err error)
}

type Searcher interface {
	OpenReader(ctx context.Context) (Reader, error)
}

// Reader is a point-in-time view of a committed index.
type Reader interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Documents(ctx context.Context, fn func(StoredDocument) error) error
	Count() (int, error)
	Close() error
}

type FileStat struct {
	Name string
	Size int64
}

// SegmentStat describes one immutable segment, for engines that expose
// their segment layout.
type SegmentStat struct {
	Name  string
	Size  int64
	Docs  int
	Terms int
}

// Stats describes an index on disk. Segments is empty for engines with an
// opaque layout.
type Stats struct {
	Docs     int
	Terms    int
	Files    []FileStat
	Segments []SegmentStat
}

type Engine interface {
	Name() string
	Version() string
	Indexer
	Searcher
	Stats(ctx context.Context) (Stats, error)
}

// Options carries engine-independent settings from configuration.
type Options struct {
	SegmentMaxSize int64
	Logger         *slog.Logger
}
