package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/tokenizer"
)

// MemoryIndex buffers postings and stored fields until the engine flushes
// them to a segment.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]map[string]*Posting
	docs  []StoredDoc
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[string]*Posting),
	}
}

// AddDocument indexes title and body together and returns the token count.
func (m *MemoryIndex) AddDocument(docID string, title string, body string) int {
	fullText := title + " " + body
	tokens := tokenizer.Tokenize(fullText)

	termData := make(map[string]*Posting)

	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Frequency: 0,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for term, posting := range termData {
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[string]*Posting)
		}
		m.index[term][docID] = posting
		m.size += int64(len(term) + len(docID) + len(posting.Positions)*8 + 64)
	}
	m.docs = append(m.docs, StoredDoc{
		ID:     docID,
		Title:  title,
		Body:   body,
		Length: len(tokens),
	})
	m.size += int64(len(docID) + len(title) + len(body))
	return len(tokens)
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns the buffered terms in sorted order, each with postings
// sorted by document ID.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Docs returns the buffered documents in insertion order.
func (m *MemoryIndex) Docs() []StoredDoc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StoredDoc, len(m.docs))
	copy(out, m.docs)
	return out
}

func (m *MemoryIndex) Terms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = nil
	m.size = 0
}
