package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/config"
)

// ConfigIssue is one problem found in a config file.
type ConfigIssue struct {
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
	Errors []ConfigIssue  `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a runtime config file",
		Long: `Validate a runtime config file against the config schema.

Unknown fields, out-of-range values and inconsistent settings (a bounded
bus overflow policy without a capacity, for example) are all reported.
With --verbose the resolved config, defaults included, is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputValidateError(formatter, ErrCodeConfigRead, err.Error())
	}
	formatter.VerboseLog("Read %d byte(s) from %s", len(data), path)

	cfg, err := config.Parse(data)
	if err != nil {
		return outputValidationErrors(formatter, configIssues(err))
	}

	return outputValidateSuccess(formatter, cfg)
}

// configIssues flattens a config error into one issue per field.
func configIssues(err error) []ConfigIssue {
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		return []ConfigIssue{{Message: err.Error(), Code: ErrCodeConfigParse}}
	}
	issues := make([]ConfigIssue, len(ve.Fields))
	for i, f := range ve.Fields {
		issues[i] = ConfigIssue{Field: f.Path, Message: f.Message, Code: ErrCodeConfigSchema}
	}
	return issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cfg config.Config) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Config: &cfg})
	}

	fmt.Fprintln(formatter.Writer, "✓ Config valid")
	if formatter.Verbose {
		fmt.Fprintf(formatter.Writer, "  bus:        %s (overflow %s, capacity %d)\n", cfg.Bus.Strategy, cfg.Bus.Overflow, cfg.Bus.Capacity)
		fmt.Fprintf(formatter.Writer, "  workers:    %d (queue %d, overflow %s)\n", cfg.Workers.Size, cfg.Workers.Queue, cfg.Workers.Overflow)
		fmt.Fprintf(formatter.Writer, "  keep_cache: %t\n", cfg.KeepCache)
		fmt.Fprintf(formatter.Writer, "  log:        %s/%s\n", cfg.Log.Level, cfg.Log.Format)
		if cfg.Journal.Path != "" {
			fmt.Fprintf(formatter.Writer, "  journal:    %s\n", cfg.Journal.Path)
		}
	}
	return nil
}

// outputValidateError reports a config file that could not be read.
func outputValidateError(formatter *OutputFormatter, code ErrorCode, message string) error {
	fail := code.failure(message, nil)
	if err := formatter.Error(fail.Code, fail.Message, nil); err != nil {
		return err
	}
	return fail.exit()
}

// outputValidationErrors reports every issue; the first one names the failure.
func outputValidationErrors(formatter *OutputFormatter, issues []ConfigIssue) error {
	code := issues[0].Code
	if formatter.JSON() {
		if err := writeResponse(formatter.Writer, ValidationResult{Errors: issues}, code.failure(issues[0].Message, nil)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, issue := range issues {
			if issue.Field != "" {
				fmt.Fprintf(formatter.Writer, "%s\n", issue.Field)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return NewExitError(code.Exit(), fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
