package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) (*options, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	f := pflag.NewFlagSet("multiping", pflag.ContinueOnError)
	registerFlags(f)
	require.NoError(t, f.Parse(args))
	return loadOptions(f)
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)

	opts, err := parseFlags(t)
	require.NoError(t, err)

	assert.Equal(time.Second, opts.monitor.Interval)
	assert.Equal(2*time.Second, opts.monitor.Timeout)
	assert.EqualValues(32, opts.monitor.PayloadSize)
	assert.Equal(3600, opts.monitor.HistorySize)
	assert.Equal(3, opts.monitor.DownAfter)
	assert.False(opts.monitor.Spread)
	assert.True(opts.pinger.Privileged)
	assert.Equal("0.0.0.0", opts.pinger.Bind4)
	assert.Equal("::", opts.pinger.Bind6)
	assert.Equal("ip", opts.network)
	assert.False(opts.verbose)
}

func TestFlags(t *testing.T) {
	assert := assert.New(t)

	opts, err := parseFlags(t, "-i", "0.75", "-t", "1.5", "-s", "56", "-H", "120",
		"--down-after", "5", "--spread", "--randomize", "--privileged=false",
		"--bind6", "", "--mark", "42", "-6", "--debug")
	require.NoError(t, err)

	assert.Equal(750*time.Millisecond, opts.monitor.Interval)
	assert.Equal(1500*time.Millisecond, opts.monitor.Timeout)
	assert.EqualValues(56, opts.monitor.PayloadSize)
	assert.Equal(120, opts.monitor.HistorySize)
	assert.Equal(5, opts.monitor.DownAfter)
	assert.True(opts.monitor.Spread)
	assert.True(opts.monitor.RandomizePayload)
	assert.False(opts.pinger.Privileged)
	assert.Empty(opts.pinger.Bind6)
	assert.Equal(42, opts.pinger.Mark)
	assert.Equal("ip6", opts.network)
	assert.True(opts.debug)
	assert.True(opts.verbose, "debug implies verbose")
}

func TestClamp(t *testing.T) {
	tests := []struct {
		args     []string
		interval time.Duration
		timeout  time.Duration
		history  int
	}{
		{[]string{"-i", "0.1", "-t", "0.01", "-H", "1"}, 500 * time.Millisecond, 100 * time.Millisecond, 60},
		{[]string{"-i", "60", "-t", "30", "-H", "100000"}, 10 * time.Second, 5 * time.Second, 65535},
	}

	for _, tt := range tests {
		opts, err := parseFlags(t, tt.args...)
		require.NoError(t, err)
		assert.Equal(t, tt.interval, opts.monitor.Interval)
		assert.Equal(t, tt.timeout, opts.monitor.Timeout)
		assert.Equal(t, tt.history, opts.monitor.HistorySize)
	}
}

func TestInvalidOptions(t *testing.T) {
	for _, args := range [][]string{
		{"-s", "70000"},
		{"-s", "0"},
		{"--down-after", "0"},
		{"-4", "-6"},
		{"--bind4", "", "--bind6", ""},
		{"--config", "/nonexistent/multiping.yaml"},
	} {
		_, err := parseFlags(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multiping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 2\ntimeout: 3\nhistory: 600\nspread: true\n"), 0o644))

	t.Setenv("MULTIPING_TIMEOUT", "4")
	t.Setenv("MULTIPING_DOWN_AFTER", "7")

	opts, err := parseFlags(t, "--config", path, "-H", "300")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(2*time.Second, opts.monitor.Interval, "from file")
	assert.Equal(4*time.Second, opts.monitor.Timeout, "env over file")
	assert.Equal(300, opts.monitor.HistorySize, "flag over file")
	assert.Equal(7, opts.monitor.DownAfter, "env over default")
	assert.True(opts.monitor.Spread)
}

func TestDefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "multiping"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "multiping", "config.yaml"), []byte("size: 100\n"), 0o644))

	f := pflag.NewFlagSet("multiping", pflag.ContinueOnError)
	registerFlags(f)
	require.NoError(t, f.Parse(nil))

	t.Setenv("XDG_CONFIG_HOME", dir)
	opts, err := loadOptions(f)
	require.NoError(t, err)
	assert.EqualValues(t, 100, opts.monitor.PayloadSize)
}
