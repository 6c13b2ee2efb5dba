// Package executor runs parsed query plans against an index and returns
// BM25-ranked results.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/searcher/ranker"
)

// Index is the read side of the native engine the executor needs.
type Index interface {
	Postings(term string) (index.PostingList, error)
	DocCount() int
	AvgDocLength() float64
	DocLength(docID string) int
}

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

type Executor struct {
	index  Index
	logger *slog.Logger
}

func New(idx Index) *Executor {
	return &Executor{
		index:  idx,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Terms) == 0 {
		return &SearchResult{
			Query:   plan.RawQuery,
			Results: []ranker.ScoredDoc{},
		}, nil
	}

	postingsPerTerm := make(map[string]index.PostingList)
	termStats := make(map[string]int)
	for _, term := range plan.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := e.index.Postings(term)
		if err != nil {
			return nil, fmt.Errorf("searching term %q: %w", term, err)
		}
		termStats[term] = len(postings)
		if len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}
	excludeDocIDs := make(map[string]struct{})
	for _, term := range plan.ExcludeTerms {
		postings, err := e.index.Postings(term)
		if err != nil {
			return nil, fmt.Errorf("searching exclude term %q: %w", term, err)
		}
		for _, p := range postings {
			excludeDocIDs[p.DocID] = struct{}{}
		}
	}
	var candidateDocIDs map[string]struct{}
	switch plan.Type {
	case parser.QueryAND:
		// a term with no postings empties the intersection
		if len(postingsPerTerm) < len(termStats) {
			candidateDocIDs = make(map[string]struct{})
		} else {
			candidateDocIDs = intersectPostings(postingsPerTerm)
		}
	case parser.QueryOR:
		candidateDocIDs = unionPostings(postingsPerTerm)
	}
	for docID := range excludeDocIDs {
		delete(candidateDocIDs, docID)
	}
	filteredPostings := make(map[string]index.PostingList)
	for term, postings := range postingsPerTerm {
		filtered := make(index.PostingList, 0)
		for _, p := range postings {
			if _, ok := candidateDocIDs[p.DocID]; ok {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			filteredPostings[term] = filtered
		}
	}
	params := ranker.RankParams{
		TotalDocs:    int64(e.index.DocCount()),
		AvgDocLength: e.index.AvgDocLength(),
	}
	getDocInfo := func(docID string) ranker.DocInfo {
		return ranker.DocInfo{
			DocLength: e.index.DocLength(docID),
		}
	}
	ranked := ranker.Rank(filteredPostings, params, getDocInfo, limit)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"candidates", len(candidateDocIDs),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(candidateDocIDs),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

func intersectPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[string]struct{})
	for _, p := range postingsPerTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortestTerm {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, exists := docSet[docID]; !exists {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	result := make(map[string]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}
