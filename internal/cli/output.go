package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes of the flux binary.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario, golden trace, replay check or config failed
	ExitCommandError = 2 // the command could not run at all
)

// ErrorCode names a reported failure in JSON output and text errors.
type ErrorCode string

const (
	ErrCodeConfigRead       ErrorCode = "E_CONFIG_READ"
	ErrCodeConfigParse      ErrorCode = "E_CONFIG_PARSE"
	ErrCodeConfigSchema     ErrorCode = "E_CONFIG_SCHEMA"
	ErrCodeScenarioFailed   ErrorCode = "E_SCENARIO_FAILED"
	ErrCodeTestFailed       ErrorCode = "E_TEST_FAILED"
	ErrCodeNondeterministic ErrorCode = "E_NONDETERMINISTIC"
)

// Exit returns the process exit code for a failure reported under c.
// Only unreadable input stops a command outright.
func (c ErrorCode) Exit() int {
	if c == ErrCodeConfigRead {
		return ExitCommandError
	}
	return ExitFailure
}

// ExitError carries a process exit code out of a command's RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain, or
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every JSON document flux prints.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes why a command reported failure.
type CLIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// failure builds the CLIError reported under c.
func (c ErrorCode) failure(message string, details any) *CLIError {
	return &CLIError{Code: c, Message: message, Details: details}
}

// exit converts a reported failure into the command's return value.
func (e *CLIError) exit() *ExitError {
	return NewExitError(e.Code.Exit(), fmt.Sprintf("%s: %s", e.Code, e.Message))
}

// writeResponse prints data in the JSON envelope. A non-nil fail marks the
// document as an error.
func writeResponse(w io.Writer, data any, fail *CLIError) error {
	resp := CLIResponse{Status: "ok", Data: data, Error: fail}
	if fail != nil {
		resp.Status = "error"
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// OutputFormatter prints results as text or JSON. Diagnostics go to Diag
// so they never interleave with a JSON document on Writer.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Diag    io.Writer
	Verbose bool
}

// JSON reports whether output is the JSON envelope.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success prints data, wrapped in the envelope for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return writeResponse(f.Writer, data, nil)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error prints a failure. Text output shows details only when verbose.
func (f *OutputFormatter) Error(code ErrorCode, message string, details any) error {
	if f.JSON() {
		return writeResponse(f.Writer, nil, code.failure(message, details))
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when verbose. Without a Diag writer,
// JSON output drops it rather than corrupt the document.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.Diag
	if w == nil && !f.JSON() {
		w = f.Writer
	}
	if w != nil {
		fmt.Fprintf(w, format+"\n", args...)
	}
}
