// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	uniqw "github.com/UniQw/uniqw-dlq"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultBatchSize is the replay batch size used when none is configured.
	DefaultBatchSize = 100
	// dotEnvDepth is how many parent directories are searched for a .env file.
	dotEnvDepth = 5
	// testEnv is the APP_ENV value that selects stub queue handles.
	testEnv = "test"
)

// Numeric values are read as strings so bad input can fall back instead of failing the load.
type env struct {
	RedisURL        string `envconfig:"REDIS_URL"`
	JobAttempts     string `envconfig:"QUEUE_JOB_ATTEMPTS"`
	BackoffDelayMs  string `envconfig:"QUEUE_BACKOFF_DELAY_MS"`
	ReplayBatchSize string `envconfig:"DLQ_REPLAY_BATCH_SIZE"`
	AppEnv          string `envconfig:"APP_ENV"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
}

// Config is the resolved process configuration.
type Config struct {
	Connection uniqw.Connection
	Retry      uniqw.RetryPolicy
	BatchSize  int
	Mode       uniqw.Mode
	LogLevel   string
}

// Load reads the first .env file found in the working directory or its parents,
// then resolves the configuration from the environment. Variables already set
// in the environment win over the file.
func Load() (*Config, error) {
	if cwd, err := os.Getwd(); err == nil {
		LoadDotEnv(cwd)
	}
	return FromEnv()
}

// LoadDotEnv loads the nearest .env file at or above dir, looking at most
// dotEnvDepth parents up. It returns the loaded path, or "" if none was found.
func LoadDotEnv(dir string) string {
	for i := 0; i <= dotEnvDepth; i++ {
		candidate := filepath.Join(dir, ".env")
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			if godotenv.Load(candidate) != nil {
				return ""
			}
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// FromEnv resolves the configuration from the current environment.
// An invalid REDIS_URL is an error; in stub mode REDIS_URL may be empty.
func FromEnv() (*Config, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, err
	}

	cfg := &Config{
		Retry: uniqw.NewRetryPolicy(
			readPositiveInt(e.JobAttempts, uniqw.DefaultAttempts),
			msDuration(readPositiveInt(e.BackoffDelayMs, int(uniqw.DefaultBackoffDelay.Milliseconds()))),
		),
		BatchSize: readBatchSize(e.ReplayBatchSize),
		Mode:      uniqw.ModeRedis,
		LogLevel:  e.LogLevel,
	}
	if strings.TrimSpace(e.AppEnv) == testEnv {
		cfg.Mode = uniqw.ModeStub
	}

	conn, err := uniqw.ParseConnection(e.RedisURL)
	switch {
	case err == nil:
		cfg.Connection = conn
	case cfg.Mode == uniqw.ModeStub && errors.Is(err, uniqw.ErrMissingConnection):
	default:
		return nil, err
	}
	return cfg, nil
}

// readPositiveInt returns the floored value of s, or fallback when s is not a
// finite number greater than zero.
func readPositiveInt(s string, fallback int) int {
	f, ok := parseFinite(s)
	if !ok || f <= 0 {
		return fallback
	}
	f = math.Floor(f)
	if f < 1 {
		return fallback
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// readBatchSize floors s and clamps it to at least 1. Unset or unparsable values mean DefaultBatchSize.
func readBatchSize(s string) int {
	f, ok := parseFinite(s)
	if !ok {
		return DefaultBatchSize
	}
	f = math.Floor(f)
	if f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
