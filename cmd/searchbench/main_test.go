package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

func buildIndex(t *testing.T, engine string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx")
	e, err := backend.Open(engine, path, backend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	w, err := e.OpenWriter(ctx, backend.ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	docs := []backend.Document{
		{ID: "1", Title: "one", Body: "the president spoke in america"},
		{ID: "2", Title: "two", Body: "america advanced together"},
		{ID: "3", Title: "three", Body: "a bunny yesterday"},
	}
	for _, d := range docs {
		if err := w.Add(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	for _, engine := range []string{"native", "bluge"} {
		t.Run(engine, func(t *testing.T) {
			path := buildIndex(t, engine)
			var out bytes.Buffer
			err := run(context.Background(), []string{
				"-engine", engine,
				"-index", path,
				"-terms", "america,bunny",
				"-iterations", "3",
				"-reps", "2",
			}, &out, io.Discard)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			report := out.String()
			// america hits 2 docs, bunny 1: 3 hits x 3 iterations x 2 reps
			for _, want := range []string{
				"Searching 2 terms x 3 iterations, top 10",
				"Queries: 6,",
				"Total found: 18\n",
			} {
				if !strings.Contains(report, want) {
					t.Errorf("report missing %q:\n%s", want, report)
				}
			}
		})
	}
}

func TestRunMissingIndex(t *testing.T) {
	err := run(context.Background(), []string{"-index", filepath.Join(t.TempDir(), "none")}, io.Discard, io.Discard)
	if got := apperrors.ExitCode(err); got != apperrors.ExitIO {
		t.Fatalf("exit code = %d (%v)", got, err)
	}
}

func TestRunBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-iterations", "x"},
		{"-iterations", "0"},
		{"-limit", "0"},
		{"-terms", " , "},
	} {
		err := run(context.Background(), args, io.Discard, io.Discard)
		if got := apperrors.ExitCode(err); got != apperrors.ExitArgument {
			t.Errorf("%v: exit code = %d (%v)", args, got, err)
		}
	}
}
