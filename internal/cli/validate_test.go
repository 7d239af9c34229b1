package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "flux.yaml", `
bus:
  strategy: buffered
  overflow: drop_oldest
  capacity: 64
workers:
  size: 8
keep_cache: true
`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Config valid")
	assert.Contains(t, out, "buffered (overflow drop_oldest, capacity 64)")
	assert.Contains(t, out, "keep_cache: true")
}

func TestValidate_ValidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "flux.yaml", "workers:\n  size: 2\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Config)
	assert.Equal(t, 2, resp.Data.Config.Workers.Size)
	assert.Equal(t, "direct", resp.Data.Config.Bus.Strategy)
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "flux.yaml", "workers:\n  size: 0\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, ErrCodeConfigSchema, resp.Data.Errors[0].Code)
	assert.Contains(t, resp.Data.Errors[0].Field, "workers.size")
}

func TestValidate_UnknownField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "flux.yaml", "transport: carrier-pigeon\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, string(ErrCodeConfigParse))
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_CONFIG_READ]")
}

func TestValidate_MissingArg(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
