package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/programme-lv/grader/internal/xdg"
)

const (
	AppName        = "grader"
	ConfigFileName = "grader.toml"
	envPrefix      = "GRADER_"
)

type CompilerConfig struct {
	Path  string   `toml:"path"`
	Flags []string `toml:"flags"`
}

type ReportConfig struct {
	NatsUrl     string `toml:"nats_url"`
	NatsSubject string `toml:"nats_subject"`
	SqsQueueUrl string `toml:"sqs_queue_url"`
	AwsRegion   string `toml:"aws_region"`
}

type TestsConfig struct {
	Zstd bool `toml:"zstd"`
}

// Config is the grader configuration after all layers are merged.
type Config struct {
	TimeLimitMs    int            `toml:"time_limit_ms"`
	MemoryLimitMb  int            `toml:"memory_limit_mb"`
	PollIntervalMs int            `toml:"poll_interval_ms"`
	Compiler       CompilerConfig `toml:"compiler"`
	CacheDir       string         `toml:"cache_dir"`
	LogLevel       string         `toml:"log_level"`
	Report         ReportConfig   `toml:"report"`
	Tests          TestsConfig    `toml:"tests"`
}

func Default() Config {
	cfg := Config{
		TimeLimitMs:    1000,
		MemoryLimitMb:  256,
		PollIntervalMs: 5,
		LogLevel:       "info",
	}
	cfg.Compiler.Path = "g++"
	cfg.Compiler.Flags = []string{"-std=c++17", "-O2"}
	cfg.CacheDir = xdg.New().AppCacheDir(filepath.Join(AppName, "artifacts"))
	cfg.Report.NatsSubject = "grader.events"
	return cfg
}

// DefaultConfigPath is the config file looked up when none is given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.New().AppConfigDir(AppName), ConfigFileName)
}

// Load merges the defaults, the TOML file at path, a .env file in the working
// directory and GRADER_* environment variables, in that order. An empty path
// reads the default config file if it exists. A path that was asked for
// explicitly must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := readFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"TIME_LIMIT_MS":    &cfg.TimeLimitMs,
		"MEMORY_LIMIT_MB":  &cfg.MemoryLimitMb,
		"POLL_INTERVAL_MS": &cfg.PollIntervalMs,
	}
	for key, dst := range ints {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", envPrefix, key, v, err)
		}
		*dst = n
	}

	strs := map[string]*string{
		"COMPILER":      &cfg.Compiler.Path,
		"CACHE_DIR":     &cfg.CacheDir,
		"LOG_LEVEL":     &cfg.LogLevel,
		"NATS_URL":      &cfg.Report.NatsUrl,
		"NATS_SUBJECT":  &cfg.Report.NatsSubject,
		"SQS_QUEUE_URL": &cfg.Report.SqsQueueUrl,
		"AWS_REGION":    &cfg.Report.AwsRegion,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "COMPILER_FLAGS"); ok && v != "" {
		cfg.Compiler.Flags = strings.Fields(v)
	}
	if v, ok := lookup(envPrefix + "TESTS_ZSTD"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sTESTS_ZSTD=%q: %w", envPrefix, v, err)
		}
		cfg.Tests.Zstd = b
	}
	return nil
}

func (c Config) Validate() error {
	if c.TimeLimitMs <= 0 {
		return fmt.Errorf("time_limit_ms must be positive, got %d", c.TimeLimitMs)
	}
	if c.MemoryLimitMb <= 0 {
		return fmt.Errorf("memory_limit_mb must be positive, got %d", c.MemoryLimitMb)
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMs)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SlogLevel maps log_level to a slog level. Validate has already rejected unknown names.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
