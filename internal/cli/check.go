package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paydirt/paydirt/internal/csvio"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <input.csv>",
		Short: "Validate an operations file without processing it",
		Long: `Check parses every record of an operations CSV and reports the ones
that would be skipped during processing. No ledger state is built and
nothing is emitted.

Exit code is 0 when every record parses, 1 when any record is invalid.

Example:
  paydirt check transactions.csv
  paydirt check --format json transactions.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	return cmd
}

// CheckResult is the machine-readable result of a check run.
type CheckResult struct {
	Records int      `json:"records"`
	Invalid int      `json:"invalid"`
	Errors  []string `json:"errors,omitempty"`
}

func runCheck(opts *CheckOptions, inputPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	in, err := os.Open(inputPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer in.Close()

	result := CheckResult{}
	reader := csvio.NewReader(in)
	for {
		_, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		result.Records++
		if err == nil {
			continue
		}

		var pe *csvio.ParseError
		if errors.As(err, &pe) {
			result.Invalid++
			result.Errors = append(result.Errors, pe.Error())
			continue
		}
		// Not a per-record failure: the source itself is broken.
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if result.Invalid == 0 {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		return formatter.Success(fmt.Sprintf("OK: %d records", result.Records))
	}

	if err := formatter.Error("E_INVALID_RECORDS",
		fmt.Sprintf("%d of %d records are invalid", result.Invalid, result.Records),
		result.Errors,
	); err != nil {
		return err
	}
	if opts.Format == "text" {
		for _, msg := range result.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", msg)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d invalid records", result.Invalid))
}
