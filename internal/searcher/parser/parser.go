// Package parser turns query text into a QueryPlan of normalised terms
// joined by AND or OR, with NOT-excluded terms.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// Parse builds a plan. The last AND/OR operator seen sets the plan type.
// An empty query, a NOT with nothing after it, or a query whose words are
// all stop-words fails with ErrQuery.
func Parse(query string) (*QueryPlan, error) {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrQuery, "empty query")
	}
	words := strings.Fields(query)
	excludeNext := false
	for i := 0; i < len(words); i++ {
		upper := strings.ToUpper(words[i])
		switch upper {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		tokens := tokenizer.Tokenize(words[i])
		if len(tokens) == 0 {
			continue
		}
		term := tokens[0].Term
		if excludeNext {
			plan.ExcludeTerms = append(plan.ExcludeTerms, term)
			excludeNext = false
		} else {
			plan.Terms = append(plan.Terms, term)
		}
	}
	if excludeNext {
		return nil, apperrors.Newf(apperrors.ErrQuery, "query %q ends with NOT", query)
	}
	if len(plan.Terms) == 0 {
		return nil, apperrors.Newf(apperrors.ErrQuery, "query %q has no searchable terms", query)
	}
	return plan, nil
}
