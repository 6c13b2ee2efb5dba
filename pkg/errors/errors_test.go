package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"argument", New(ErrArgument, "bad flag"), ExitArgument},
		{"unknown engine", Newf(ErrUnknownEngine, "%q", "lucene"), ExitArgument},
		{"io", New(ErrIO, "corpus unreadable"), ExitIO},
		{"parse", New(ErrParse, "no title"), ExitParse},
		{"index", New(ErrIndex, "add failed"), ExitIndex},
		{"query", New(ErrQuery, "empty"), ExitQuery},
		{"division by zero", New(ErrDivisionByZero, "0s"), ExitDivisionByZero},
		{"wrapped sentinel", fmt.Errorf("rep 2: %w", ErrParse), ExitParse},
		{"plain", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ErrParse, fs.ErrNotExist, "opening %s", "a.txt")
	if !errors.Is(err, ErrParse) {
		t.Error("expected ErrParse in chain")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected fs.ErrNotExist in chain")
	}
	if err.ExitCode != ExitParse {
		t.Errorf("exit code = %d, want %d", err.ExitCode, ExitParse)
	}
}

func TestKind(t *testing.T) {
	if got := Kind(fmt.Errorf("x: %w", New(ErrQuery, "y"))); got != "query" {
		t.Errorf("Kind() = %q, want query", got)
	}
	if got := Kind(errors.New("z")); got != "internal" {
		t.Errorf("Kind() = %q, want internal", got)
	}
}
