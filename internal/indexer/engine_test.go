package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
)

func testConfig(dir string) config.IndexConfig {
	return config.IndexConfig{Engine: "native", Path: dir, SegmentMaxSize: 100 * 1024 * 1024}
}

func TestEngineIndexFlushReopen(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(testConfig(dir), Create)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e.IndexDocument("d1", "Cocoa review", "showers in the cocoa zone")
	e.IndexDocument("d2", "Oil unit", "standard oil formed a financial unit")
	if e.DocCount() != 2 {
		t.Errorf("doc count before close = %d", e.DocCount())
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e, err = Open(testConfig(dir), Append)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if e.DocCount() != 2 {
		t.Errorf("doc count after reopen = %d, want 2", e.DocCount())
	}
	if e.DocLength("d1") == 0 || e.AvgDocLength() == 0 {
		t.Error("doc lengths not restored from segment")
	}
	e.IndexDocument("d3", "Cocoa again", "more cocoa")
	postings, err := e.Postings("cocoa")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 2 || postings[0].DocID != "d1" || postings[1].DocID != "d3" {
		t.Errorf("cocoa postings = %+v", postings)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if segs, _ := listSegments(dir); len(segs) != 2 {
		t.Errorf("got %d segments, want 2", len(segs))
	}
}

func TestEngineCreateWipesSegmentsOnly(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(testConfig(dir), Create)
	if err != nil {
		t.Fatal(err)
	}
	e.IndexDocument("d1", "title", "body text")
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err = Open(testConfig(dir), Create)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.DocCount() != 0 {
		t.Errorf("create mode kept %d docs", e.DocCount())
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestEngineFlushThreshold(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.SegmentMaxSize = 1
	e, err := Open(cfg, Create)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	for i := 0; i < 3; i++ {
		if err := e.IndexDocument(fmt.Sprintf("d%d", i), "t", "alpha beta"); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(e.Segments()); n != 3 {
		t.Errorf("got %d segments, want one per document", n)
	}
	if e.Terms() != 2 {
		t.Errorf("terms = %d, want 2", e.Terms())
	}
}

func TestEngineStoredDocuments(t *testing.T) {
	e, err := Open(testConfig(t.TempDir()), Create)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	e.IndexDocument("flushed", "Flushed", "on disk")
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}
	e.IndexDocument("buffered", "Buffered", "in memory")

	var ids []string
	err = e.StoredDocuments(context.Background(), func(doc index.StoredDoc) error {
		ids = append(ids, doc.ID)
		if doc.Title == "" || doc.Body == "" {
			t.Errorf("missing stored fields for %s", doc.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "flushed" || ids[1] != "buffered" {
		t.Errorf("visited %v", ids)
	}
}

func TestEngineRejectsCorruptSegment(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seg_1_000001.spdx"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(testConfig(dir), Append); err == nil {
		t.Fatal("expected error for corrupt segment")
	}
}

func TestDeduplicatePostings(t *testing.T) {
	got := deduplicatePostings(index.PostingList{
		{DocID: "b", Frequency: 1},
		{DocID: "a", Frequency: 1},
		{DocID: "b", Frequency: 3},
	})
	if len(got) != 2 || got[0].DocID != "a" || got[1].Frequency != 3 {
		t.Errorf("deduplicatePostings = %+v", got)
	}
}

func BenchmarkEngineIndex(b *testing.B) {
	for _, preload := range []int{100, 1000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			engine, err := Open(testConfig(b.TempDir()), Create)
			if err != nil {
				b.Fatal(err)
			}
			defer engine.Close()
			for i := 0; i < preload; i++ {
				engine.IndexDocument(fmt.Sprintf("preload-%d", i), "preload doc", "preloading documents for benchmark warmup phase")
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := engine.IndexDocument(fmt.Sprintf("bench-%d", i), "benchmark title", "benchmark document body for measuring indexing throughput"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
