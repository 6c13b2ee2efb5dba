// Package corpus reads the benchmark corpus: a root directory of
// subdirectories, each holding marked article files whose first line is the
// title and whose remaining lines form the body.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

const maxLineSize = 64 * 1024 * 1024

// Document is a parsed corpus file.
type Document struct {
	Path  string
	Title string
	Body  string
}

// ListDocuments returns every file under the immediate subdirectories of
// root whose full path contains marker, sorted lexically by path. Symlinked
// subdirectories and files are followed; broken links are skipped.
func ListDocuments(root string, marker string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading corpus directory %s", root)
	}
	paths := make([]string, 0)
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if mode, ok := resolveMode(entry, dir); !ok || !mode.IsDir() {
			continue
		}
		articles, err := os.ReadDir(dir)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading corpus subdirectory %s", dir)
		}
		for _, article := range articles {
			path := filepath.Join(dir, article.Name())
			if mode, ok := resolveMode(article, path); !ok || !mode.IsRegular() {
				continue
			}
			if !strings.Contains(path, marker) {
				continue
			}
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// resolveMode returns the type of entry, looking through a symlink to its
// target. ok is false for a dangling link.
func resolveMode(entry fs.DirEntry, path string) (fs.FileMode, bool) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type(), true
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.Mode().Type(), true
}

// ParseDocument reads the title from the first line of path and concatenates
// the remaining lines, terminators stripped, into the body.
func ParseDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, apperrors.Wrap(apperrors.ErrParse, err, "opening document %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Document{}, apperrors.Wrap(apperrors.ErrParse, err, "reading title of %s", path)
		}
		return Document{}, apperrors.Newf(apperrors.ErrParse, "failed to read title: %s is empty", path)
	}
	doc := Document{
		Path:  path,
		Title: scanner.Text(),
	}
	var body strings.Builder
	for scanner.Scan() {
		body.Write(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return Document{}, apperrors.Wrap(apperrors.ErrParse, err, "reading body of %s", path)
	}
	doc.Body = body.String()
	return doc, nil
}

// Corpus binds a corpus location to the reader operations.
type Corpus struct {
	Dir    string
	Marker string
	logger *slog.Logger
}

func New(cfg config.CorpusConfig) *Corpus {
	return &Corpus{
		Dir:    cfg.Dir,
		Marker: cfg.Marker,
		logger: slog.Default().With("component", "corpus"),
	}
}

func (c *Corpus) List() ([]string, error) {
	paths, err := ListDocuments(c.Dir, c.Marker)
	if err != nil {
		return nil, err
	}
	c.logger.Info("corpus listed",
		"dir", c.Dir,
		"marker", c.Marker,
		"documents", len(paths),
	)
	return paths, nil
}

func (c *Corpus) Parse(path string) (Document, error) {
	return ParseDocument(path)
}

// Each parses paths in order and hands every document to fn, stopping after
// limit documents when limit > 0.
func (c *Corpus) Each(ctx context.Context, paths []string, limit int, fn func(Document) error) error {
	if limit <= 0 || limit > len(paths) {
		limit = len(paths)
	}
	for _, path := range paths[:limit] {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := ParseDocument(path)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return fmt.Errorf("handling %s: %w", path, err)
		}
	}
	return nil
}
