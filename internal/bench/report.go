package bench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

const rule = "---------------------------------------------------------------"

// Environment describes the machine and engine a run executed on.
type Environment struct {
	Engine        string `json:"engine"`
	EngineVersion string `json:"engine_version"`
	GoVersion     string `json:"go_version"`
	Compiler      string `json:"compiler"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	NumCPU        int    `json:"num_cpu"`
	Hostname      string `json:"hostname"`
}

func CurrentEnvironment(engineName string, engineVersion string) Environment {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Environment{
		Engine:        engineName,
		EngineVersion: engineVersion,
		GoVersion:     runtime.Version(),
		Compiler:      runtime.Compiler,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		NumCPU:        runtime.NumCPU(),
		Hostname:      host,
	}
}

// Reporter renders progress and final statistics for human readers.
type Reporter struct {
	w io.Writer
	p *message.Printer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		w: w,
		p: message.NewPrinter(language.English),
	}
}

func (r *Reporter) Header(title string) {
	fmt.Fprintln(r.w, title)
	fmt.Fprintln(r.w, rule)
}

// Interim prints one line per completed trial.
func (r *Reporter) Interim(rec TrialRecord, unit string) {
	secs := rec.ElapsedSeconds()
	fmt.Fprintf(r.w, "%d   Secs: %s  %s: %d, %s %s/s\n",
		rec.Rep,
		r.p.Sprintf("%.2f", secs),
		label(unit),
		rec.Units,
		r.rate(rec.Units, secs),
		unit,
	)
}

// Final prints the summary block. extra lines are appended before the
// closing rule.
func (r *Reporter) Final(env Environment, s Summary, unit string, extra ...string) {
	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, "%s %s\n", env.Engine, env.EngineVersion)
	fmt.Fprintf(r.w, "Go %s (%s)\n", env.GoVersion, env.Compiler)
	fmt.Fprintf(r.w, "%s %s (%d CPUs)\n", env.OS, env.Arch, env.NumCPU)
	fmt.Fprintf(r.w, "Mean: %s secs\n", r.p.Sprintf("%.2f", s.Mean))

	// rate is per trial
	perTrial := 0
	if s.Trials > 0 {
		perTrial = s.Units / s.Trials
	}
	fmt.Fprintf(r.w, "Truncated mean (%d kept, %d discarded): %s secs, %s %s/s\n",
		s.Kept,
		s.Discarded,
		r.p.Sprintf("%.2f", s.TruncatedMean),
		r.rate(perTrial, s.TruncatedMean),
		unit,
	)
	fmt.Fprintf(r.w, "P50: %s  P90: %s  Min: %s  Max: %s secs\n",
		r.p.Sprintf("%.2f", s.P50),
		r.p.Sprintf("%.2f", s.P90),
		r.p.Sprintf("%.2f", s.Min),
		r.p.Sprintf("%.2f", s.Max),
	)
	for _, line := range extra {
		fmt.Fprintln(r.w, line)
	}
	fmt.Fprintln(r.w, rule)
}

// Sprintf formats with the reporter's digit grouping.
func (r *Reporter) Sprintf(format string, args ...any) string {
	return r.p.Sprintf(format, args...)
}

// rate is whole units per second, truncated toward zero.
func (r *Reporter) rate(units int, secs float64) string {
	v, err := Throughput(units, secs)
	if errors.Is(err, apperrors.ErrDivisionByZero) {
		return "n/a"
	}
	return r.p.Sprintf("%d", int64(v))
}

func label(unit string) string {
	if unit == "" {
		return unit
	}
	runes := []rune(unit)
	runes[0] = unicode.ToUpper(runes[0])
	return strings.TrimSpace(string(runes))
}
