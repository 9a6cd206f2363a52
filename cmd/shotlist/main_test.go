package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		closeLogSink()
		cfgFile, logFile, writePath = "", "", ""
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootReportsConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unterminated"), 0644))

	_, stderr, err := runRoot(t, "--config", path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")
	assert.Contains(t, stderr, err.Error())
}

func TestRootAppendsToLogFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("concurrency: 3\n"), 0644))
	logPath := filepath.Join(dir, "shotlist.log")
	outPath := filepath.Join(dir, "saved.yaml")

	_, stderr, err := runRoot(t, "--config", cfgPath, "--log-file", logPath, "config", "show", "--write", outPath)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	closeLogSink()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"configuration written"`)
	assert.Contains(t, string(data), outPath)

	saved, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "concurrency: 3")
}
