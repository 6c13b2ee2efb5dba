package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

var (
	reStory      = regexp.MustCompile(`<REUTERS`)
	reTitleWhole = regexp.MustCompile(`<TITLE>([^<]*)</TITLE>`)
	reTitleOpen  = regexp.MustCompile(`<TITLE>([^<]*)`)
	reTitleClose = regexp.MustCompile(`([^<]*)</TITLE>`)
	reBodyWhole  = regexp.MustCompile(`(?s)<BODY>(.*)</BODY>`)
	reBodyOpen   = regexp.MustCompile(`(?s)<BODY>(.*)`)
	reBodyClose  = regexp.MustCompile(`(?s)(.*)</BODY>`)
)

// ExtractReuters converts every Reuters-21578 .sgm file below srcDir into a
// corpus directory outDir/<file>.sgm/ of articleNNNNN.txt files, each holding
// the title, a blank line and the body. It returns the number of articles
// written.
func ExtractReuters(ctx context.Context, srcDir string, outDir string) (int, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIO, err, "reading source directory %s", srcDir)
	}
	if !info.IsDir() {
		return 0, apperrors.Newf(apperrors.ErrArgument, "%s is not a directory", srcDir)
	}
	sources := make([]string, 0)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sgm") {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIO, err, "walking %s", srcDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrIO, err, "creating corpus directory %s", outDir)
	}

	logger := slog.Default().With("component", "reuters-extract")
	x := &extractor{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return x.count, err
		}
		before := x.count
		if err := x.extractFile(src, filepath.Join(outDir, filepath.Base(src))); err != nil {
			return x.count, err
		}
		logger.Info("processed sgml file",
			"file", src,
			"articles", x.count-before,
		)
	}
	logger.Info("extraction complete", "articles", x.count, "out_dir", outDir)
	return x.count, nil
}

type extractor struct {
	count   int
	title   strings.Builder
	body    strings.Builder
	inTitle bool
	inBody  bool
}

func (x *extractor) extractFile(src string, dir string) error {
	f, err := os.Open(src)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "opening %s", src)
	}
	defer f.Close()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "creating %s", dir)
	}

	r := bufio.NewReaderSize(f, 256*1024)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			if err := x.consume(line, dir); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return apperrors.Wrap(apperrors.ErrIO, readErr, "reading %s", src)
		}
	}
}

// consume advances the SGML state machine by one line, writing an article
// when a </BODY> closes.
func (x *extractor) consume(line string, dir string) error {
	switch {
	case reStory.MatchString(line):
		x.title.Reset()
		x.body.Reset()
		x.inTitle, x.inBody = false, false
	case reTitleWhole.MatchString(line):
		x.title.Reset()
		x.title.WriteString(reTitleWhole.FindStringSubmatch(line)[1])
	case reTitleOpen.MatchString(line):
		x.inTitle = true
		x.title.Reset()
		x.title.WriteString(strings.TrimRight(reTitleOpen.FindStringSubmatch(line)[1], "\r\n"))
	case reTitleClose.MatchString(line):
		x.inTitle = false
		x.appendTitle(reTitleClose.FindStringSubmatch(line)[1])
	case reBodyWhole.MatchString(line):
		x.body.WriteString(reBodyWhole.FindStringSubmatch(line)[1])
		return x.flush(dir)
	case reBodyOpen.MatchString(line):
		x.inBody = true
		x.body.WriteString(reBodyOpen.FindStringSubmatch(line)[1])
	case reBodyClose.MatchString(line):
		x.inBody = false
		x.body.WriteString(reBodyClose.FindStringSubmatch(line)[1])
		return x.flush(dir)
	default:
		if x.inBody {
			x.body.WriteString(line)
		}
		if x.inTitle {
			x.appendTitle(line)
		}
	}
	return nil
}

// appendTitle joins a continuation line onto the title with a single space so
// the title stays on the first line of the article.
func (x *extractor) appendTitle(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if x.title.Len() > 0 {
		x.title.WriteByte(' ')
	}
	x.title.WriteString(s)
}

func (x *extractor) flush(dir string) error {
	name := filepath.Join(dir, fmt.Sprintf("article%05d.txt", x.count))
	title := x.title.String()
	body := x.body.String()
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	content := title + "\n\n" + body
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrIO, err, "writing %s", name)
	}
	x.count++
	x.inBody = false
	x.body.Reset()
	return nil
}
