package workload

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

const (
	DefaultIterations = 1000
	DefaultLimit      = 10
)

// Search runs every term Iterations times against an open reader. Zero
// values take the defaults.
type Search struct {
	Reader     backend.Reader
	Terms      []string
	Iterations int
	Limit      int

	// TotalFound accumulates hit counts across all runs.
	TotalFound int64
}

func (s *Search) applyDefaults() {
	if s.Terms == nil {
		s.Terms = config.DefaultSearchTerms
	}
	if s.Iterations == 0 {
		s.Iterations = DefaultIterations
	}
	if s.Limit == 0 {
		s.Limit = DefaultLimit
	}
}

func (s *Search) Validate() error {
	s.applyDefaults()
	if s.Reader == nil {
		return apperrors.New(apperrors.ErrArgument, "search workload needs an open reader")
	}
	if len(s.Terms) == 0 {
		return apperrors.New(apperrors.ErrArgument, "search terms are empty")
	}
	if s.Iterations < 1 {
		return apperrors.Newf(apperrors.ErrArgument, "iterations must be >= 1, got %d", s.Iterations)
	}
	if s.Limit < 1 {
		return apperrors.Newf(apperrors.ErrArgument, "limit must be >= 1, got %d", s.Limit)
	}
	return nil
}

// Run returns the number of queries executed.
func (s *Search) Run(ctx context.Context) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	queries := 0
	for i := 0; i < s.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return queries, err
		}
		for _, term := range s.Terms {
			hits, err := s.Reader.Search(ctx, term, s.Limit)
			if err != nil {
				return queries, fmt.Errorf("query %q: %w", term, err)
			}
			s.TotalFound += int64(len(hits))
			queries++
		}
	}
	return queries, nil
}
