// Package config loads and validates benchmark configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// corpus, the engine under test, the timed workloads and the optional result
// sinks (Redis, Kafka, PostgreSQL).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// DefaultSearchTerms is the fixed query set of the original search benchmark.
var DefaultSearchTerms = []string{
	"english", "gutenberg", "yesterday", "together",
	"america", "advanced", "president", "bunny",
}

// Config is the top-level benchmark configuration.
type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Index   IndexConfig   `yaml:"index"`
	Bench   BenchConfig   `yaml:"bench"`
	Search  SearchConfig  `yaml:"search"`
	Load    LoadConfig    `yaml:"load"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Results ResultsConfig `yaml:"results"`
}

// CorpusConfig locates the two-level corpus directory.
type CorpusConfig struct {
	Dir    string `yaml:"dir"`
	Marker string `yaml:"marker"`
}

// IndexConfig selects the engine under test and where its index lives.
type IndexConfig struct {
	Engine         string `yaml:"engine"`
	Path           string `yaml:"path"`
	SegmentMaxSize int64  `yaml:"segmentMaxSize"`
}

// BenchConfig controls trial repetition and the indexing workload.
type BenchConfig struct {
	Reps         int     `yaml:"reps"`
	Docs         int     `yaml:"docs"`
	Increment    int     `yaml:"increment"`
	TrimFraction float64 `yaml:"trimFraction"`
}

// SearchConfig controls the query workload.
type SearchConfig struct {
	Terms      []string `yaml:"terms"`
	Iterations int      `yaml:"iterations"`
	Limit      int      `yaml:"limit"`
}

// LoadConfig controls the stored-document load workload.
type LoadConfig struct {
	Passes int    `yaml:"passes"`
	Fields string `yaml:"fields"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server and the optional
// Pushgateway export at the end of a run.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	PushURL string `yaml:"pushURL"`
	Job     string `yaml:"job"`
}

// ResultsConfig groups the sinks a finished run is published to.
type ResultsConfig struct {
	Timeout  time.Duration  `yaml:"timeout"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis connection parameters and run-history retention.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"poolSize"`
	RunTTL     time.Duration `yaml:"runTTL"`
	HistoryLen int64         `yaml:"historyLen"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrArgument, err, "parsing config file %s", path)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config matching the original benchmark drivers: the
// "corpus" directory of "article" files, one repetition, all documents, no
// writer reopening.
func Default() *Config {
	terms := make([]string, len(DefaultSearchTerms))
	copy(terms, DefaultSearchTerms)
	return &Config{
		Corpus: CorpusConfig{
			Dir:    "corpus",
			Marker: "article",
		},
		Index: IndexConfig{
			Engine:         "native",
			Path:           "bench_index",
			SegmentMaxSize: 256 * 1024 * 1024,
		},
		Bench: BenchConfig{
			Reps:         1,
			TrimFraction: 0.25,
		},
		Search: SearchConfig{
			Terms:      terms,
			Iterations: 1000,
			Limit:      10,
		},
		Load: LoadConfig{
			Passes: 10,
			Fields: "all",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Job:  "search-bench",
		},
		Results: ResultsConfig{
			Timeout: 5 * time.Second,
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				PoolSize:   4,
				RunTTL:     30 * 24 * time.Hour,
				HistoryLen: 100,
			},
			Kafka: KafkaConfig{
				Brokers:       []string{"localhost:9092"},
				ConsumerGroup: "search-bench-collector",
				Topic:         "bench-runs",
			},
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "searchbench",
				User:            "searchbench",
				Password:        "localdev",
				SSLMode:         "disable",
				MaxOpenConns:    5,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
	}
}

// Validate rejects values no workload can run with.
func (c *Config) Validate() error {
	switch {
	case c.Bench.Reps < 1:
		return apperrors.Newf(apperrors.ErrArgument, "reps must be >= 1, got %d", c.Bench.Reps)
	case c.Bench.Docs < 0:
		return apperrors.Newf(apperrors.ErrArgument, "docs must be >= 0, got %d", c.Bench.Docs)
	case c.Bench.Increment < 0:
		return apperrors.Newf(apperrors.ErrArgument, "increment must be >= 0, got %d", c.Bench.Increment)
	case c.Bench.TrimFraction < 0 || c.Bench.TrimFraction >= 0.5:
		return apperrors.Newf(apperrors.ErrArgument, "trimFraction must be in [0, 0.5), got %g", c.Bench.TrimFraction)
	case c.Search.Iterations < 1:
		return apperrors.Newf(apperrors.ErrArgument, "search iterations must be >= 1, got %d", c.Search.Iterations)
	case c.Search.Limit < 1:
		return apperrors.Newf(apperrors.ErrArgument, "search limit must be >= 1, got %d", c.Search.Limit)
	case len(c.Search.Terms) == 0:
		return apperrors.New(apperrors.ErrArgument, "search terms must not be empty")
	case c.Load.Passes < 1:
		return apperrors.Newf(apperrors.ErrArgument, "load passes must be >= 1, got %d", c.Load.Passes)
	case c.Index.Path == "":
		return apperrors.New(apperrors.ErrArgument, "index path must not be empty")
	}
	return nil
}

// SplitList splits a comma-separated value, trimming spaces and dropping
// empty entries, so "a,,b" and "a, b" both yield [a b].
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// applyEnvOverrides reads SB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SB_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("SB_CORPUS_MARKER"); v != "" {
		cfg.Corpus.Marker = v
	}
	if v := os.Getenv("SB_INDEX_ENGINE"); v != "" {
		cfg.Index.Engine = v
	}
	if v := os.Getenv("SB_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("SB_BENCH_REPS"); v != "" {
		if reps, err := strconv.Atoi(v); err == nil {
			cfg.Bench.Reps = reps
		}
	}
	if v := os.Getenv("SB_SEARCH_TERMS"); v != "" {
		cfg.Search.Terms = SplitList(v)
	}
	if v := os.Getenv("SB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SB_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("SB_METRICS_PUSH_URL"); v != "" {
		cfg.Metrics.PushURL = v
	}
	if v := os.Getenv("SB_REDIS_ADDR"); v != "" {
		cfg.Results.Redis.Addr = v
	}
	if v := os.Getenv("SB_REDIS_PASSWORD"); v != "" {
		cfg.Results.Redis.Password = v
	}
	if v := os.Getenv("SB_KAFKA_BROKERS"); v != "" {
		cfg.Results.Kafka.Brokers = SplitList(v)
	}
	if v := os.Getenv("SB_POSTGRES_HOST"); v != "" {
		cfg.Results.Postgres.Host = v
	}
	if v := os.Getenv("SB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Results.Postgres.Port = port
		}
	}
	if v := os.Getenv("SB_POSTGRES_DATABASE"); v != "" {
		cfg.Results.Postgres.Database = v
	}
	if v := os.Getenv("SB_POSTGRES_USER"); v != "" {
		cfg.Results.Postgres.User = v
	}
	if v := os.Getenv("SB_POSTGRES_PASSWORD"); v != "" {
		cfg.Results.Postgres.Password = v
	}
}
