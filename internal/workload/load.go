package workload

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// Field selects which stored fields a load pass reads.
type Field int

const (
	FieldNone Field = iota
	FieldTitle
	FieldBody
	FieldAll
)

const DefaultPasses = 10

func (f Field) String() string {
	switch f {
	case FieldNone:
		return "none"
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	case FieldAll:
		return "all"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return FieldNone, nil
	case "title":
		return FieldTitle, nil
	case "body":
		return FieldBody, nil
	case "all", "":
		return FieldAll, nil
	default:
		return FieldNone, apperrors.Newf(apperrors.ErrArgument, "unknown field selection %q (want none, title, body or all)", s)
	}
}

// Load scans every stored document Passes times. Passes of 0 means
// DefaultPasses.
type Load struct {
	Reader backend.Reader
	Passes int
	Fields Field

	// Bytes accumulates the length of every field read.
	Bytes int64
}

func (l *Load) Validate() error {
	if l.Passes == 0 {
		l.Passes = DefaultPasses
	}
	if l.Reader == nil {
		return apperrors.New(apperrors.ErrArgument, "load workload needs an open reader")
	}
	if l.Passes < 1 {
		return apperrors.Newf(apperrors.ErrArgument, "passes must be >= 1, got %d", l.Passes)
	}
	return nil
}

// Run returns the number of documents visited across all passes.
func (l *Load) Run(ctx context.Context) (int, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	visited := 0
	for pass := 1; pass <= l.Passes; pass++ {
		err := l.Reader.Documents(ctx, func(doc backend.StoredDocument) error {
			switch l.Fields {
			case FieldTitle:
				l.Bytes += int64(len(doc.Title))
			case FieldBody:
				l.Bytes += int64(len(doc.Body))
			case FieldAll:
				l.Bytes += int64(len(doc.Title) + len(doc.Body))
			}
			visited++
			return nil
		})
		if err != nil {
			return visited, fmt.Errorf("load pass %d: %w", pass, err)
		}
	}
	return visited, nil
}
