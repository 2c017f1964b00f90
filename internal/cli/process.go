package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/paydirt/paydirt/internal/audit"
	"github.com/paydirt/paydirt/internal/csvio"
	"github.com/paydirt/paydirt/internal/stream"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Output    string
	AuditDB   string
	QueueSize int
	Strict    bool
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <input.csv>",
		Short: "Process an operations file into final account state",
		Long: `Process reads an operations CSV (type, client, tx, amount), applies
every operation in order, and writes one CSV row per referenced
account (client, available, held, total, locked).

The account CSV goes to stdout by default so it can be piped; logs and
warnings go to stderr. Accounts locked by a chargeback appear in the
output as soon as they lock.

Example:
  paydirt process transactions.csv > accounts.csv
  paydirt process --output accounts.csv --audit-db runs.db transactions.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the account CSV to a file instead of stdout")
	cmd.Flags().StringVar(&opts.AuditDB, "audit-db", "", "path to a SQLite audit journal (optional)")
	cmd.Flags().IntVar(&opts.QueueSize, "queue-size", stream.DefaultQueueSize, "capacity of the emission handoff queue")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat malformed input records as fatal")

	return cmd
}

// ProcessSummary is the machine-readable result of a process run.
type ProcessSummary struct {
	Run       string `json:"run"`
	Applied   int    `json:"applied"`
	Rejected  int    `json:"rejected"`
	Malformed int    `json:"malformed"`
	Accounts  int    `json:"accounts"`
}

func runProcess(opts *ProcessOptions, inputPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	// One token for the whole run: the processor logs with it and the
	// audit journal (when enabled) tags every row with it.
	run := stream.UUIDv7Generator{}.Generate()

	in, err := os.Open(inputPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer in.Close()

	// Resolve the CSV destination: stdout unless --output names a file.
	var out io.Writer = cmd.OutOrStdout()
	toFile := opts.Output != ""
	if toFile {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Error("error closing output file", "error", closeErr)
			}
		}()
		out = f
	}

	writer := csvio.NewWriter(out)
	sink := stream.MultiSink{writer}

	if opts.AuditDB != "" {
		slog.Info("opening audit journal", "path", opts.AuditDB)
		st, err := audit.Open(opts.AuditDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open audit database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing audit database", "error", closeErr)
			}
		}()
		sink = append(sink, st.NewRecorder(run))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := stream.New(
		stream.WithRunToken(run),
		stream.WithQueueSize(opts.QueueSize),
		stream.WithStrict(opts.Strict),
	)
	stats, err := p.Run(ctx, csvio.NewReader(in), sink)
	if err != nil {
		if errors.Is(err, stream.ErrMalformedRecord) {
			return WrapExitError(ExitFailure, "malformed input record in strict mode", err)
		}
		return WrapExitError(ExitFailure, "processing failed", err)
	}
	if err := writer.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to flush output", err)
	}

	// Summary goes to stdout only when the CSV went elsewhere.
	if toFile {
		formatter := &OutputFormatter{
			Format:  opts.Format,
			Writer:  cmd.OutOrStdout(),
			Verbose: opts.Verbose,
		}
		summary := ProcessSummary{
			Run:       run,
			Applied:   stats.Applied,
			Rejected:  stats.Rejected,
			Malformed: stats.Malformed,
			Accounts:  stats.Emitted,
		}
		if opts.Format == "json" {
			return formatter.Success(summary)
		}
		return formatter.Success(fmt.Sprintf(
			"Processed %d operations (%d rejected, %d malformed), wrote %d accounts to %s",
			stats.Applied+stats.Rejected, stats.Rejected, stats.Malformed, stats.Emitted, opts.Output,
		))
	}

	return nil
}
