package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/harness"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/journal"
	"github.com/roach88/flux/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal   string
	ShowTrace bool
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	State    map[string][]any     `json:"state"`
	Metrics  map[string]float64   `json:"metrics"`
	Journal  string               `json:"journal,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario against the demo stores",
		Long: `Run a scenario: resolve its stores, send each step's action, wait for
the stores to settle, and check the assertions.

With --journal (or journal.path in the config file) every action and
change event is recorded to a SQLite journal that "flux trace" and
"flux replay" can read back.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (invalid scenario, journal not writable, etc.)

Examples:
  flux run ./scenarios/todo_lifecycle.yaml
  flux run ./scenarios/todo_lifecycle.yaml --journal ./flux.db
  flux run ./scenarios/buffered_bus.yaml --trace --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run to this SQLite journal")
	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print the trace in text output")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up metrics", err)
	}
	runOpts := harness.Options{
		Logger:  logger,
		Metrics: m,
		Workers: cfg.Workers.Size,
	}

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = cfg.Journal.Path
	}
	if journalPath != "" {
		js, err := journal.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := js.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts.Journal = js
		for _, k := range cfg.Journal.Kinds {
			runOpts.JournalKinds = append(runOpts.JournalKinds, ir.ActionKind(k))
		}
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("running scenario", "name", scenario.Name, "bus", scenario.Bus, "journal", journalPath)
	result, err := harness.Run(ctx, scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario setup failed", err)
	}

	counts, err := gatherCounters(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read metrics", err)
	}
	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Trace:    result.Trace,
		State:    result.State,
		Metrics:  counts,
		Journal:  journalPath,
	}

	var fail *CLIError
	if !out.Pass {
		fail = ErrCodeScenarioFailed.failure(fmt.Sprintf("scenario %s failed", out.Scenario), out.Errors)
	}
	if opts.Format == "json" {
		if err := writeResponse(cmd.OutOrStdout(), out, fail); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, out, opts.ShowTrace)
	}

	if fail != nil {
		return fail.exit()
	}
	return nil
}

// gatherCounters sums every counter in reg by metric name.
func gatherCounters(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				counts[mf.GetName()] += c.GetValue()
			}
		}
	}
	return counts, nil
}

func outputRunText(cmd *cobra.Command, out RunResult, showTrace bool) {
	w := cmd.OutOrStdout()

	if out.Pass {
		fmt.Fprintf(w, "✓ %s\n", out.Scenario)
	} else {
		fmt.Fprintf(w, "✗ %s\n", out.Scenario)
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if showTrace {
		fmt.Fprintln(w, "\nTrace:")
		for _, ev := range out.Trace {
			fmt.Fprintf(w, "  %s\n", formatTraceEvent(ev))
		}
	}

	fmt.Fprintf(w, "\nPosted: %.0f  Dropped: %.0f  Rejected: %.0f\n",
		out.Metrics["flux_bus_posted_total"],
		out.Metrics["flux_bus_dropped_total"],
		out.Metrics["flux_actions_rejected_total"])
	if out.Journal != "" {
		fmt.Fprintf(w, "Journal: %s\n", out.Journal)
	}
}

func formatTraceEvent(ev harness.TraceEvent) string {
	switch ev.Type {
	case harness.EventAction:
		return fmt.Sprintf("[%d] %s (%s) %s", ev.Seq, ev.Kind, ev.Shape, ev.Payload)
	case harness.EventChange:
		return fmt.Sprintf("    %s <- %v", ev.Store, ev.Fields)
	case harness.EventRejected:
		return fmt.Sprintf("    %s rejected: %s", ev.Kind, ev.Code)
	case harness.EventConcurrent:
		return fmt.Sprintf("    %d x %s (concurrent)", ev.Count, ev.Kind)
	}
	return ev.Type
}
