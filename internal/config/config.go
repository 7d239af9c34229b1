// Package config loads runtime configuration from YAML and validates it
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the runtime configuration.
type Config struct {
	Bus       BusConfig       `yaml:"bus" json:"bus"`
	Workers   WorkerConfig    `yaml:"workers" json:"workers"`
	KeepCache bool            `yaml:"keep_cache" json:"keep_cache"`
	Journal   JournalConfig   `yaml:"journal" json:"journal"`
	Log       LogConfig       `yaml:"log" json:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// BusConfig selects the action bus.
type BusConfig struct {
	Strategy string `yaml:"strategy" json:"strategy"`
	Overflow string `yaml:"overflow" json:"overflow"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// WorkerConfig sizes the shared worker pool.
type WorkerConfig struct {
	Size     int    `yaml:"size" json:"size"`
	Queue    int    `yaml:"queue" json:"queue"`
	Overflow string `yaml:"overflow" json:"overflow"`
}

// JournalConfig enables the SQLite journal. An empty path disables it.
// Kinds limits the recorded actions; empty records every kind.
type JournalConfig struct {
	Path  string   `yaml:"path" json:"path"`
	Kinds []string `yaml:"kinds" json:"kinds,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// RateLimitConfig caps sends per second. Zero disables the limit.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" json:"per_second"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// Default returns the configuration used for absent fields.
func Default() Config {
	return Config{
		Bus:     BusConfig{Strategy: "direct", Overflow: "unbounded"},
		Workers: WorkerConfig{Size: 4, Queue: 1024, Overflow: "reject"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected. Empty input yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FieldError is one schema violation.
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError lists every schema violation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return fmt.Errorf("compile config: %w", err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	ve := &ValidationError{}
	for _, e := range errs {
		format, args := e.Msg()
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		ve.Fields = append(ve.Fields, FieldError{
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return ve
}
