package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	uniqw "github.com/UniQw/uniqw-dlq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REDIS_URL", "QUEUE_JOB_ATTEMPTS", "QUEUE_BACKOFF_DELAY_MS", "DLQ_REPLAY_BATCH_SIZE", "APP_ENV", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Connection.Addr())
	assert.Equal(t, uniqw.DefaultRetryPolicy(), cfg.Retry)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, uniqw.ModeRedis, cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Values(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "rediss://:secret@cache.internal:6380")
	t.Setenv("QUEUE_JOB_ATTEMPTS", "3.9")
	t.Setenv("QUEUE_BACKOFF_DELAY_MS", " 1500 ")
	t.Setenv("DLQ_REPLAY_BATCH_SIZE", "25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Connection.TLS)
	assert.Equal(t, "secret", cfg.Connection.Password)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Retry.BackoffDelay)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_InvalidAttemptsFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost")
	t.Setenv("QUEUE_JOB_ATTEMPTS", "abc")
	t.Setenv("QUEUE_BACKOFF_DELAY_MS", "-10")

	cfg, err := FromEnv()
	require.NoError(t, err)
	opts := cfg.Retry.BuildDefaultOptions(uniqw.JobOptions{})
	assert.Equal(t, 5, opts.Attempts)
	assert.Equal(t, int64(2000), opts.Backoff.Delay)
}

func TestFromEnv_RedisURL(t *testing.T) {
	clearEnv(t)
	_, err := FromEnv()
	require.ErrorIs(t, err, uniqw.ErrMissingConnection)

	t.Setenv("REDIS_URL", "http://localhost")
	_, err = FromEnv()
	require.ErrorIs(t, err, uniqw.ErrInvalidConnection)
}

func TestFromEnv_StubMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "test")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, uniqw.ModeStub, cfg.Mode)

	// a present but broken URL still fails fast
	t.Setenv("REDIS_URL", "::not a url")
	_, err = FromEnv()
	require.ErrorIs(t, err, uniqw.ErrInvalidConnection)
}

func TestReadPositiveInt(t *testing.T) {
	cases := map[string]int{
		"":         7,
		"abc":      7,
		"NaN":      7,
		"Inf":      7,
		"-Inf":     7,
		"0":        7,
		"-3":       7,
		"0.4":      7,
		"1":        1,
		"2.99":     2,
		"  12  ":   12,
		"1e3":      1000,
		"1e300":    math.MaxInt32,
		"12abc":    7,
		"infinity": 7,
	}
	for in, want := range cases {
		assert.Equal(t, want, readPositiveInt(in, 7), "input %q", in)
	}
}

func TestReadBatchSize(t *testing.T) {
	cases := map[string]int{
		"":     DefaultBatchSize,
		"abc":  DefaultBatchSize,
		"NaN":  DefaultBatchSize,
		"+Inf": DefaultBatchSize,
		"0":    1,
		"-5":   1,
		"0.5":  1,
		"1":    1,
		"7.8":  7,
		"250":  250,
	}
	for in, want := range cases {
		assert.Equal(t, want, readBatchSize(in), "input %q", in)
	}
}

func TestLoadDotEnv_SearchesParents(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	envPath := filepath.Join(root, "a", ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("REDIS_URL=redis://from-file:6390\nDLQ_REPLAY_BATCH_SIZE=9\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("REDIS_URL")
		_ = os.Unsetenv("DLQ_REPLAY_BATCH_SIZE")
	})

	require.Equal(t, envPath, LoadDotEnv(nested))
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-file:6390", cfg.Connection.Addr())
	assert.Equal(t, 9, cfg.BatchSize)
}

func TestLoadDotEnv_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_URL=redis://from-file\n"), 0o644))
	t.Setenv("REDIS_URL", "redis://from-env")

	t.Chdir(dir)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Connection.Host)
}

func TestLoadDotEnv_TooDeep(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("X_UNUSED=1\n"), 0o644))
	deep := filepath.Join(root, "1", "2", "3", "4", "5", "6")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	require.Empty(t, LoadDotEnv(deep))
}
