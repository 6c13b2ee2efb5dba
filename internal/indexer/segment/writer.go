package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
)

// MagicBytes identifies a valid .spdx segment file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".spdx"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
// Version 2 adds the doc table offset and size in the last 16 bytes.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	DocsOffset int64
	DocsSize   int64
}

// DictEntry maps a term to its postings offset, length, and document frequency
// in the segment file.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// DocEntry locates one document's stored fields. Offset is absolute.
type DocEntry struct {
	ID     string `json:"i"`
	Length int    `json:"n"`
	Offset int64  `json:"o"`
	Size   int    `json:"l"`
}

type storedFields struct {
	Title string `json:"t"`
	Body  string `json:"b"`
}

var segmentSeq atomic.Uint64

// Writer serialises flushed memory indexes into new .spdx segment files.
type Writer struct {
	dataDir string
}

func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new segment file holding the given terms and
// documents. It writes to a .tmp file, syncs, and renames on success.
func (w *Writer) Write(entries []index.TermEntry, docs []index.StoredDoc) (string, error) {
	if len(entries) == 0 && len(docs) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	segmentName := fmt.Sprintf("seg_%d_%06d%s", time.Now().UnixNano(), segmentSeq.Add(1), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{w: f}
	headerBytes := make([]byte, HeaderSize)
	if _, err := cw.Write(headerBytes); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	postingsStart := cw.n
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		relativeOffset := cw.n - postingsStart
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := cw.Write(postingsData); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: relativeOffset,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
	}
	postingsSize := cw.n - postingsStart

	table := make([]DocEntry, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(storedFields{Title: doc.Title, Body: doc.Body})
		if err != nil {
			return "", fmt.Errorf("marshaling stored fields for %q: %w", doc.ID, err)
		}
		offset := cw.n
		if _, err := cw.Write(data); err != nil {
			return "", fmt.Errorf("writing stored fields for %q: %w", doc.ID, err)
		}
		table = append(table, DocEntry{
			ID:     doc.ID,
			Length: doc.Length,
			Offset: offset,
			Size:   len(data),
		})
	}

	dictStart := cw.n
	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := cw.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}
	dictSize := cw.n - dictStart

	docsStart := cw.n
	docsData, err := json.Marshal(table)
	if err != nil {
		return "", fmt.Errorf("marshaling doc table: %w", err)
	}
	if _, err := cw.Write(docsData); err != nil {
		return "", fmt.Errorf("writing doc table: %w", err)
	}
	docsSize := cw.n - docsStart

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(table)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(dictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postingsSize))
	if _, err := cw.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(len(dict)))
	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(len(table)))
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(dictSize))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(postingsStart))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(postingsSize))
	binary.LittleEndian.PutUint64(headerBytes[48:56], uint64(docsStart))
	binary.LittleEndian.PutUint64(headerBytes[56:64], uint64(docsSize))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	committed = true
	return segmentName, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
