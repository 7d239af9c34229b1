package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one action kind
	Store    string // optional - filter change events to one store
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Actions []journal.ActionRecord `json:"actions"`
	Changes []journal.ChangeRecord `json:"changes"`
	Stats   journal.Stats          `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded actions and change events",
		Long: `Show what a journal recorded: every action in sequence order, the
change events each store emitted, and summary statistics.

Examples:
  flux trace --db ./flux.db
  flux trace --db ./flux.db --kind todo.close
  flux trace --db ./flux.db --store todos --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show actions of this kind")
	cmd.Flags().StringVar(&opts.Store, "store", "", "only show change events of this store")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	js, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer js.Close()

	actions, err := js.ReadActions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}
	if opts.Kind != "" {
		actions = slices.DeleteFunc(actions, func(a journal.ActionRecord) bool {
			return a.Kind != opts.Kind
		})
	}

	changes, err := js.ReadChanges(ctx, opts.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read changes", err)
	}

	stats, err := js.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stats", err)
	}

	result := TraceResult{Actions: actions, Changes: changes, Stats: stats}
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	return writeResponse(cmd.OutOrStdout(), result, nil)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintln(w, "=== Actions ===")
	if len(result.Actions) == 0 {
		fmt.Fprintln(w, "  (no actions)")
	}
	for _, a := range result.Actions {
		fmt.Fprintf(w, "  [%d] %s (%s)\n", a.Seq, a.Kind, a.Shape)
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", a.ID)
			fmt.Fprintf(w, "       Payload: %s\n", a.Payload)
			fmt.Fprintf(w, "       Digest: %s\n", truncateID(a.Digest))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Changes ===")
	if len(result.Changes) == 0 {
		fmt.Fprintln(w, "  (no change events)")
	}
	for _, c := range result.Changes {
		fmt.Fprintf(w, "  [%d] %s %s\n", c.Seq, c.Store, c.EventType)
		if verbose {
			fmt.Fprintf(w, "       Fields: %s\n", c.Fields)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Actions:  %d\n", result.Stats.Actions)
	fmt.Fprintf(w, "  Changes:  %d\n", result.Stats.Changes)
	fmt.Fprintf(w, "  Last Seq: %d\n", result.Stats.LastSeq)
	if len(result.Stats.ByKind) > 0 {
		fmt.Fprintf(w, "  By Kind:  %s\n", formatCounts(result.Stats.ByKind))
	}
}

// formatCounts formats per-kind counts with sorted keys.
func formatCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
