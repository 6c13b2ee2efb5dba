package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/indexer/index"
)

// Reader serves term lookups and stored documents from one segment file.
type Reader struct {
	file     *os.File
	filePath string
	size     int64
	header   SegmentHeader
	dict     []DictEntry
	docs     []DocEntry
	postBase int64
}

func OpenReader(path string) (r *Reader, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("invalid segment file: %d bytes is too short", info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		DocsOffset: int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(headerBytes[56:64])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}
	if header.DocsOffset+header.DocsSize > info.Size()-int64(FooterSize) {
		return nil, fmt.Errorf("invalid segment file: sections exceed file size")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if got, want := crc32.ChecksumIEEE(dictBytes), binary.LittleEndian.Uint32(footer[0:4]); got != want {
		return nil, fmt.Errorf("dictionary checksum mismatch: %08x != %08x", got, want)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, fmt.Errorf("reading doc table: %w", err)
	}
	var docs []DocEntry
	if err := json.Unmarshal(docsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing doc table: %w", err)
	}

	return &Reader{
		file:     f,
		filePath: path,
		size:     info.Size(),
		header:   header,
		dict:     dict,
		docs:     docs,
		postBase: header.PostOffset,
	}, nil
}

func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	entry := r.dict[idx]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// Docs returns the doc table in write order.
func (r *Reader) Docs() []DocEntry {
	return r.docs
}

// Document loads the stored title and body for entry.
func (r *Reader) Document(entry DocEntry) (index.StoredDoc, error) {
	buf := make([]byte, entry.Size)
	if _, err := r.file.ReadAt(buf, entry.Offset); err != nil {
		return index.StoredDoc{}, fmt.Errorf("reading stored fields for %q: %w", entry.ID, err)
	}
	var fields storedFields
	if err := json.Unmarshal(buf, &fields); err != nil {
		return index.StoredDoc{}, fmt.Errorf("parsing stored fields for %q: %w", entry.ID, err)
	}
	return index.StoredDoc{
		ID:     entry.ID,
		Title:  fields.Title,
		Body:   fields.Body,
		Length: entry.Length,
	}, nil
}

// EachTerm calls fn for every term in dictionary order.
func (r *Reader) EachTerm(fn func(term string)) {
	for _, e := range r.dict {
		fn(e.Term)
	}
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
