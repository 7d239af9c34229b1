package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	require.NoError(t, formatter.Success(map[string]int{"actions": 4}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"field": "bus.capacity"}
	require.NoError(t, formatter.Error(ErrCodeConfigSchema, "capacity must be positive", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfigSchema, resp.Error.Code)
	assert.Equal(t, "capacity must be positive", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("Config valid"))
	assert.Contains(t, buf.String(), "Config valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			require.NoError(t, formatter.Error(ErrCodeConfigRead, "no such file", "flux.yaml"))
			assert.Contains(t, buf.String(), "Error [E_CONFIG_READ]: no such file")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: flux.yaml")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "json",
				Writer:  buf,
				Diag:    errBuf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Replaying %s", "flux.db")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Replaying flux.db")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogWithoutDiag(t *testing.T) {
	for format, wantLog := range map[string]bool{"text": true, "json": false} {
		t.Run(format, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: format, Writer: buf, Verbose: true}

			formatter.VerboseLog("Replaying %s", "flux.db")
			assert.Equal(t, wantLog, strings.Contains(buf.String(), "Replaying flux.db"))
		})
	}
}

func TestErrorCode_Exit(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeConfigRead, ExitCommandError},
		{ErrCodeConfigParse, ExitFailure},
		{ErrCodeConfigSchema, ExitFailure},
		{ErrCodeScenarioFailed, ExitFailure},
		{ErrCodeTestFailed, ExitFailure},
		{ErrCodeNondeterministic, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Exit())

			err := tt.code.failure("boom", nil).exit()
			assert.Equal(t, tt.want, GetExitCode(err))
			assert.Equal(t, string(tt.code)+": boom", err.Error())
		})
	}
}

func TestWriteResponse(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeResponse(buf, map[string]int{"actions": 4}, ErrCodeNondeterministic.failure("digests differ", nil)))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNondeterministic, resp.Error.Code)
	assert.Contains(t, buf.String(), "\n  \"data\"", "output is indented")
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open journal", cause)

	assert.Equal(t, "failed to open journal: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("run: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "scenario failed")))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
}
