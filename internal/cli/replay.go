package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/config"
	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/journal"
	"github.com/roach88/flux/internal/registry"
	"github.com/roach88/flux/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Verify   bool
}

// ReplayStoreResult is one store's state after replay.
type ReplayStoreResult struct {
	Kind     string `json:"kind"`
	Entities int    `json:"entities"`
	Digest   string `json:"digest"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Actions       int                 `json:"actions"`
	Stores        []ReplayStoreResult `json:"stores"`
	Verified      bool                `json:"verified"`
	Deterministic bool                `json:"deterministic"`
}

// replayKinds are the store kinds rebuilt by replay, in output order.
var replayKinds = []registry.StoreKind{demo.UserStoreKind, demo.TodoStoreKind}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild store state from a journal",
		Long: `Re-post every journaled action, in sequence order, to fresh demo stores
built from the runtime config, and report the resulting state.

Replay skips the action helper, so payloads are applied exactly as they
were recorded. With --verify the journal is replayed twice into
independent runtimes and the two final states are compared.

Exit codes:
  0 - Replay succeeded (and, with --verify, both runs agree)
  1 - Verification failed (the two runs differ)
  2 - Command error (journal not found, undecodable action, etc.)

Examples:
  flux replay --db ./flux.db
  flux replay --db ./flux.db --verify
  flux replay --db ./flux.db --config ./flux.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay twice and compare the results")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		if logger, err = opts.logger(cfg, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	js, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer js.Close()

	n, stores, err := replayOnce(ctx, js, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	result := ReplayResult{Actions: n, Stores: stores, Deterministic: true}

	if opts.Verify {
		_, again, err := replayOnce(ctx, js, cfg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "verification replay failed", err)
		}
		result.Verified = true
		for i := range stores {
			if stores[i].Digest != again[i].Digest {
				result.Deterministic = false
			}
		}
	}

	if opts.Format == "json" {
		if err := outputReplayJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd.OutOrStdout(), result)
	}

	if fail := result.failure(); fail != nil {
		return fail.exit()
	}
	return nil
}

// replayOnce replays js into a fresh runtime and summarizes each store.
func replayOnce(ctx context.Context, js *journal.Store, cfg config.Config, logger *slog.Logger) (int, []ReplayStoreResult, error) {
	rt, err := newRuntime(cfg, logger, nil)
	if err != nil {
		return 0, nil, err
	}
	defer rt.close()

	stores := make([]store.Store, len(replayKinds))
	for i, kind := range replayKinds {
		st, err := rt.ctx.GetStore(kind, nil, nil)
		if err != nil {
			return 0, nil, err
		}
		stores[i] = st
	}

	n, err := js.Replay(ctx, rt.helper, rt.bus)
	if err != nil {
		return n, nil, err
	}
	if err := rt.settle(ctx, stores...); err != nil {
		return n, nil, err
	}

	results := make([]ReplayStoreResult, len(replayKinds))
	for i, kind := range replayKinds {
		snapshot := stores[i].Snapshot()
		_, digest, err := ir.PayloadDigest(snapshot)
		if err != nil {
			return n, nil, fmt.Errorf("digest %s store: %w", kind, err)
		}
		results[i] = ReplayStoreResult{Kind: string(kind), Entities: len(snapshot), Digest: digest}
	}
	return n, results, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	return writeResponse(cmd.OutOrStdout(), result, result.failure())
}

// failure is nil unless a verified replay diverged.
func (r ReplayResult) failure() *CLIError {
	if r.Deterministic {
		return nil
	}
	return ErrCodeNondeterministic.failure("replay runs produced different store state", r.Stores)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "Replayed %d action(s)\n\n", result.Actions)
	for _, st := range result.Stores {
		fmt.Fprintf(w, "  %-6s %3d entities  %s\n", st.Kind, st.Entities, truncateID(st.Digest))
	}
	if !result.Verified {
		return
	}
	fmt.Fprintln(w)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay is deterministic")
	} else {
		fmt.Fprintln(w, "✗ Replay runs differ")
	}
}
