package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colbatch/pkg/config"
	"github.com/ajitpratap0/colbatch/pkg/sink"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormatsCommand(t *testing.T) {
	out, err := execute(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "jsonl")
	assert.Contains(t, out, "arrow")
	assert.Contains(t, out, "zstd")
}

func TestRootHelp_ListsEveryOutputFormat(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, f := range sink.Formats() {
		assert.Contains(t, out, string(f))
	}

	runHelp, err := execute(t, "run", "--help")
	require.NoError(t, err)
	assert.Contains(t, runHelp, "parquet")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "colbatch v"+version)
}

func TestRunCommand_FileToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "orders.csv")
	out := filepath.Join(dir, "orders.jsonl")
	require.NoError(t, os.WriteFile(in, []byte("id;name\n1;ada\n2;bob\n3;cy\n"), 0o600))

	_, err := execute(t, "run",
		"--input", in,
		"--delimiter", ";",
		"--rows-per-batch", "2",
		"--output", out,
		"--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"headers":["id","name"]`)
	assert.Contains(t, lines[1], `"rows":1`)
}

func TestRunCommand_ConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(in, []byte("1,ada\n2,bob\n"), 0o600))

	cfg := config.NewConfig("orders")
	cfg.Input.Path = in
	cfg.Input.HasHeader = false
	cfg.Output.Path = filepath.Join(dir, "orders.json")
	cfg.Observability.LogLevel = "error"
	cfgPath := filepath.Join(dir, "colbatch.yml")
	require.NoError(t, config.Save(cfgPath, cfg))

	_, err := execute(t, "run", "--config", cfgPath, "--rows-per-batch", "1")
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
	assert.Contains(t, string(data), `"headers":[]`)
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	_, err := execute(t, "run", "--rows-per-batch", "0", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows_per_batch")
}
