// Package ranker scores candidate documents with Okapi BM25 and keeps the
// best N of them.
package ranker

import (
	"container/heap"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RankParams carries the collection statistics and the BM25 constants. A
// zero K1 or B selects the default.
type RankParams struct {
	TotalDocs    int64
	AvgDocLength float64
	K1           float64
	B            float64
}

func (p RankParams) withDefaults() RankParams {
	if p.K1 <= 0 {
		p.K1 = DefaultK1
	}
	if p.B <= 0 {
		p.B = DefaultB
	}
	return p
}

type DocInfo struct {
	DocLength int
}

// Rank sums per-term BM25 contributions for each document and returns the
// top limit documents by descending score, ties broken by document ID. A
// limit <= 0 returns every match. Scores are rounded to four decimal places.
func Rank(
	postingsPerTerm map[string]index.PostingList,
	params RankParams,
	getDocInfo func(docID string) DocInfo,
	limit int,
) []ScoredDoc {
	params = params.withDefaults()
	scores := make(map[string]float64)
	for _, postings := range postingsPerTerm {
		idf := computeIDF(params.TotalDocs, int64(len(postings)))
		for _, posting := range postings {
			info := getDocInfo(posting.DocID)
			scores[posting.DocID] += idf * computeTFNorm(
				float64(posting.Frequency),
				float64(info.DocLength),
				params.AvgDocLength,
				params.K1,
				params.B,
			)
		}
	}

	if limit <= 0 || limit >= len(scores) {
		result := make([]ScoredDoc, 0, len(scores))
		for docID, score := range scores {
			result = append(result, ScoredDoc{DocID: docID, Score: round(score)})
		}
		sort.Slice(result, func(i, j int) bool { return better(result[i], result[j]) })
		return result
	}

	// min-heap of the current best, worst at the root
	top := make(topDocs, 0, limit)
	for docID, score := range scores {
		doc := ScoredDoc{DocID: docID, Score: round(score)}
		if top.Len() < limit {
			heap.Push(&top, doc)
			continue
		}
		if better(doc, top[0]) {
			top[0] = doc
			heap.Fix(&top, 0)
		}
	}
	result := make([]ScoredDoc, top.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&top).(ScoredDoc)
	}
	return result
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

func round(score float64) float64 {
	return math.Round(score*10000) / 10000
}

type topDocs []ScoredDoc

func (t topDocs) Len() int           { return len(t) }
func (t topDocs) Less(i, j int) bool { return better(t[j], t[i]) }
func (t topDocs) Swap(i, j int)      { t[i], t[j] = t[j], t[i] }
func (t *topDocs) Push(x any)        { *t = append(*t, x.(ScoredDoc)) }
func (t *topDocs) Pop() any {
	old := *t
	doc := old[len(old)-1]
	*t = old[:len(old)-1]
	return doc
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	return math.Log((float64(totalDocs)-float64(docFreq))/(float64(docFreq)+0.5) + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64, k1 float64, b float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	return termFreq * (k1 + 1) / (termFreq + k1*(1-b+b*docLength/avgDocLength))
}
