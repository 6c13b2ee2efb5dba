package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

func writeCorpus(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "reut2-000.sgm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("Title %d\n\nthe president of america said %d things\n", i, i)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("article%05d.txt", i)), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRun(t *testing.T) {
	for _, engine := range []string{"native", "bluge"} {
		t.Run(engine, func(t *testing.T) {
			root := writeCorpus(t, 5)
			var out bytes.Buffer
			err := run(context.Background(), []string{
				"-engine", engine,
				"-corpus", root,
				"-index", filepath.Join(t.TempDir(), "idx"),
				"-docs", "4",
				"-increment", "2",
				"-reps", "2",
			}, &out, io.Discard)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			report := out.String()
			for _, want := range []string{
				"Indexing 4 docs into " + engine,
				"reopening every 2",
				"1   Secs: ",
				"2   Secs: ",
				"Docs: 4,",
				"Truncated mean (2 kept, 0 discarded)",
			} {
				if !strings.Contains(report, want) {
					t.Errorf("report missing %q:\n%s", want, report)
				}
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown flag", []string{"-fast"}, apperrors.ExitArgument},
		{"non-integer docs", []string{"-docs", "ten"}, apperrors.ExitArgument},
		{"negative increment", []string{"-increment", "-1"}, apperrors.ExitArgument},
		{"positional", []string{"corpus"}, apperrors.ExitArgument},
		{"unknown engine", []string{"-engine", "lucene", "-corpus", "CORPUS"}, apperrors.ExitArgument},
		{"missing corpus", []string{"-corpus", "MISSING"}, apperrors.ExitIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeCorpus(t, 1)
			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				switch a {
				case "CORPUS":
					a = root
				case "MISSING":
					a = filepath.Join(root, "nope")
				}
				args[i] = a
			}
			args = append([]string{"-index", filepath.Join(t.TempDir(), "idx")}, args...)
			err := run(context.Background(), args, io.Discard, io.Discard)
			if got := apperrors.ExitCode(err); got != tt.code {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	root := writeCorpus(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{"-corpus", root, "-index", filepath.Join(t.TempDir(), "idx")}, io.Discard, io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
