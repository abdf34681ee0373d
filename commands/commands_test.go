package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/appbaseio/world-search/config"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"create-index", "reindex", "serve", "worker"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"env", "config", "log", "log-file", "cpuprofile"} {
		assert.NotNil(t, flags.Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, ".env", flags.Lookup("env").DefValue)
	assert.Equal(t, "false", flags.Lookup("cpuprofile").DefValue)
}

func TestProfile(t *testing.T) {
	dir := t.TempDir()
	profiler = startProfile(dir)
	stopProfile()
	assert.Nil(t, profiler)

	info, err := os.Stat(filepath.Join(dir, "cpu.pprof"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// stopping twice is a no-op
	stopProfile()
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetOutput(os.Stderr)

	tests := []struct {
		mode  string
		level log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"", log.ErrorLevel},
		{"verbose", log.ErrorLevel},
	}
	for _, tt := range tests {
		setupLogging(tt.mode, os.Stderr)
		assert.Equal(t, tt.level, log.GetLevel(), "mode %q", tt.mode)
	}
}

func TestLogOutput(t *testing.T) {
	assert.Equal(t, os.Stderr, logOutput(""))
	assert.Equal(t, os.Stdout, logOutput("stdout"))

	rotated, ok := logOutput("/tmp/world-search.log").(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, "/tmp/world-search.log", rotated.Filename)
	assert.Equal(t, 100, rotated.MaxSize)
}

func TestApplyBackfillFlags(t *testing.T) {
	defer func() { mode, dispatcher, policy = "", "", "" }()

	c := config.Default()
	mode, dispatcher, policy = config.ModeAsync, config.DispatcherNATS, config.PolicyFailFast
	require.NoError(t, applyBackfillFlags(c))
	assert.Equal(t, config.ModeAsync, c.Backfill.Mode)
	assert.Equal(t, config.DispatcherNATS, c.Backfill.Dispatcher)
	assert.Equal(t, config.PolicyFailFast, c.Backfill.Policy)

	policy = "sometimes"
	assert.Error(t, applyBackfillFlags(c))
}

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	err := schedule(context.Background(), "every now and then", func() {})
	assert.Error(t, err)
}

func TestScheduleStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, schedule(ctx, "@every 1h", func() {}))
}
