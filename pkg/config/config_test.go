package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Marker != "article" {
		t.Errorf("marker = %q, want article", cfg.Corpus.Marker)
	}
	if cfg.Bench.Reps != 1 || cfg.Bench.TrimFraction != 0.25 {
		t.Errorf("bench defaults = %+v", cfg.Bench)
	}
	if len(cfg.Search.Terms) != 8 || cfg.Search.Iterations != 1000 || cfg.Search.Limit != 10 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	data := []byte(`
corpus:
  dir: /data/reuters
bench:
  reps: 8
  docs: 500
search:
  terms: [alpha, beta]
results:
  timeout: 2s
  redis:
    enabled: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SB_INDEX_ENGINE", "bluge")
	t.Setenv("SB_BENCH_REPS", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Dir != "/data/reuters" {
		t.Errorf("corpus dir = %q", cfg.Corpus.Dir)
	}
	if cfg.Corpus.Marker != "article" {
		t.Errorf("marker default lost: %q", cfg.Corpus.Marker)
	}
	if cfg.Bench.Reps != 12 {
		t.Errorf("reps = %d, want env override 12", cfg.Bench.Reps)
	}
	if cfg.Bench.Docs != 500 {
		t.Errorf("docs = %d, want 500", cfg.Bench.Docs)
	}
	if cfg.Index.Engine != "bluge" {
		t.Errorf("engine = %q, want bluge", cfg.Index.Engine)
	}
	if len(cfg.Search.Terms) != 2 {
		t.Errorf("terms = %v", cfg.Search.Terms)
	}
	if cfg.Results.Timeout != 2*time.Second || !cfg.Results.Redis.Enabled {
		t.Errorf("results = %+v", cfg.Results)
	}
}

func TestListEnvOverrides(t *testing.T) {
	t.Setenv("SB_SEARCH_TERMS", " america,, bunny ,")
	t.Setenv("SB_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Search.Terms, []string{"america", "bunny"}) {
		t.Errorf("terms = %q", cfg.Search.Terms)
	}
	if !reflect.DeepEqual(cfg.Results.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("brokers = %q", cfg.Results.Kafka.Brokers)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{"a,,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{" , ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, apperrors.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero reps", func(c *Config) { c.Bench.Reps = 0 }},
		{"negative docs", func(c *Config) { c.Bench.Docs = -1 }},
		{"negative increment", func(c *Config) { c.Bench.Increment = -5 }},
		{"trim too large", func(c *Config) { c.Bench.TrimFraction = 0.5 }},
		{"no iterations", func(c *Config) { c.Search.Iterations = 0 }},
		{"no limit", func(c *Config) { c.Search.Limit = 0 }},
		{"no terms", func(c *Config) { c.Search.Terms = nil }},
		{"no passes", func(c *Config) { c.Load.Passes = 0 }},
		{"no index path", func(c *Config) { c.Index.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperrors.ErrArgument) {
				t.Fatalf("expected ErrArgument, got %v", err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	p := Default().Results.Postgres
	want := "host=localhost port=5432 user=searchbench password=localdev dbname=searchbench sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "bench.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Bench.Reps != 5 || cfg.Results.Redis.RunTTL != 720*time.Hour || cfg.Results.Postgres.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if len(cfg.Search.Terms) != len(DefaultSearchTerms) {
		t.Errorf("terms = %v", cfg.Search.Terms)
	}
}
