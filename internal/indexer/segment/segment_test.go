package segment

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
)

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	mi := index.NewMemoryIndex()
	mi.AddDocument("corpus/a/article1.txt", "Cocoa review", "showers in the cocoa zone")
	mi.AddDocument("corpus/a/article2.txt", "Oil unit", "standard oil formed a unit")
	name, err := NewWriter(dir).Write(mi.Snapshot(), mi.Docs())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return filepath.Join(dir, name)
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	if !strings.HasSuffix(path, Extension) {
		t.Errorf("segment name %s lacks %s", path, Extension)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.DocCount() != 2 {
		t.Errorf("doc count = %d, want 2", r.DocCount())
	}
	postings, err := r.Search("cocoa")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 1 || postings[0].DocID != "corpus/a/article1.txt" || postings[0].Frequency != 2 {
		t.Errorf("cocoa postings = %+v", postings)
	}
	if p, _ := r.Search("zzz"); p != nil {
		t.Errorf("unknown term returned %+v", p)
	}

	docs := r.Docs()
	if len(docs) != 2 || docs[1].ID != "corpus/a/article2.txt" {
		t.Fatalf("doc table = %+v", docs)
	}
	stored, err := r.Document(docs[1])
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Oil unit" || stored.Body != "standard oil formed a unit" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.Length == 0 {
		t.Error("doc length not persisted")
	}

	var terms []string
	r.EachTerm(func(term string) { terms = append(terms, term) })
	if len(terms) != r.Terms() {
		t.Errorf("EachTerm visited %d, Terms() = %d", len(terms), r.Terms())
	}
}

func TestOpenReaderRejectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	badMagic := append([]byte(nil), data...)
	badMagic[0] ^= 0xff
	p1 := filepath.Join(dir, "magic.spdx")
	if err := os.WriteFile(p1, badMagic, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(p1); err == nil {
		t.Error("bad magic accepted")
	}

	badDict := append([]byte(nil), data...)
	dictOff := int(binary.LittleEndian.Uint64(badDict[16:24]))
	badDict[dictOff+2] ^= 0x01
	p2 := filepath.Join(dir, "dict.spdx")
	if err := os.WriteFile(p2, badDict, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(p2); err == nil {
		t.Error("corrupted dictionary accepted")
	}

	p3 := filepath.Join(dir, "short.spdx")
	if err := os.WriteFile(p3, data[:10], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(p3); err == nil {
		t.Error("truncated file accepted")
	}
}

func TestWriteEmptySegment(t *testing.T) {
	if _, err := NewWriter(t.TempDir()).Write(nil, nil); err == nil {
		t.Error("expected error for empty segment")
	}
}
