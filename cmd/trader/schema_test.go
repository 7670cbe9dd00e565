package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSchemas(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeSchemas(dir))

	schema, err := os.ReadFile(filepath.Join(dir, backtestSchemaName))
	require.NoError(t, err)
	assert.Contains(t, string(schema), "initial_balance")

	sample, err := os.ReadFile(filepath.Join(dir, "backtest-config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(sample), "# yaml-language-server: $schema="+backtestSchemaName)
	assert.Contains(t, string(sample), "initial_balance: 10000")

	for _, name := range []string{"trend.json", "marketmaking.json", "arbitrage-triangular.json", "arbitrage-crossexchange.json"} {
		assert.FileExists(t, filepath.Join(dir, "strategies", name))
	}
}

func TestWriteSchemasKeepsExistingSample(t *testing.T) {
	dir := t.TempDir()
	samplePath := filepath.Join(dir, "backtest-config.yaml")
	require.NoError(t, os.WriteFile(samplePath, []byte("initial_balance: 1\n"), 0o600))

	require.NoError(t, writeSchemas(dir))

	sample, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	assert.Equal(t, "initial_balance: 1\n", string(sample))
}
