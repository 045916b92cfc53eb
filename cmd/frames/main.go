// Package main provides the CLI entry point for the frames engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	// SQL drivers for query and table origins.
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/cli"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/config"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/factory"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/runtime"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// defaultErrorLog is where fatal errors are appended, overridable with
// the FRAMES_LOG environment variable.
const defaultErrorLog = "frames.log"

var (
	// Global flags
	verbose bool
	quiet   bool

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Subcommands exit themselves; an error surfacing here is cobra
	// rejecting the usage (unknown command, bad flags, argument count).
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitValidationError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "frames",
	Short: "frames - batch tabular transformation engine",
	Long: `frames loads a table from a CSV, an XLSX workbook, a SQL query or a
table name, runs a declarative pipeline over it (derived fields, filters,
grouping/aggregation or pivot, rounding, sorting) and serializes the
result to the console, CSV, XLSX or JSON.

Examples:
  # Print a CSV grouped by category as one line of JSON
  frames run ventas.csv "['cat']" "{'amt': ['sum']}"

  # Same job, written as a file
  frames runfile job.yaml

  # Validate a job file without running it
  frames validate job.yaml`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
		attachErrorLog()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <origin> [group] [agg] [derived] [dest] [pivot] [human] [decimals] [base64] [filter] [sort] [postfilter]",
	Short: "Run a job from positional arguments",
	Long: `Run a job described entirely by positional arguments, in this fixed
order (later arguments are omittable only by omitting everything after
them; pass none/null to skip one explicitly):

  origin      CSV path, XLSX path, SQL text, or a table name (mandatory)
  group       grouping fields: 'cat' or ['cat', 'zona']
  agg         aggregation spec: {'amt': ['sum', 'mean']}
  derived     derived fields: {'total': 'amt * 2'}
  dest        destination path (.csv, .xlsx, anything else is JSON)
  pivot       pivot spec: {'index': 'zona', 'columns': 'cat', 'values': 'amt'}
  human       true/1/yes prints a readable table instead of JSON
  decimals    decimal places for float columns (0 leaves values alone)
  base64      true returns an .xlsx destination as one line of base64
  filter      pre-aggregation filter: {'amt': ['>=', 5]}
  sort        sort spec: {'amt': 'desc'}
  postfilter  post-aggregation filter, used only when grouping/pivoting

Structured arguments accept Python-style literals.

Exit codes:
  0 - Job executed successfully (including a reported export failure)
  1 - Bad arguments, source/connection/query failure, pipeline errors`,
	Args: cobra.RangeArgs(1, 12),
	Run:  runJob,
}

var runfileCmd = &cobra.Command{
	Use:   "runfile <job-file>",
	Short: "Run a job from a JSON or YAML file",
	Long: `Run a job defined in a JSON or YAML file. The file is validated
against the job schema before anything is executed.

Exit codes:
  0 - Job executed successfully (including a reported export failure)
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
	Args: cobra.ExactArgs(1),
	Run:  runJobFile,
}

var validateCmd = &cobra.Command{
	Use:   "validate <job-file>",
	Short: "Validate a job file",
	Long: `Validate a job file against the schema without running it.

Supports both JSON and YAML; the format is auto-detected from the file
extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Job file is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runfileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func attachErrorLog() {
	path := os.Getenv("FRAMES_LOG")
	if path == "" {
		path = defaultErrorLog
	}
	if err := logger.AttachErrorFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open error log %s: %v\n", path, err)
	}
}

// jobFromArgs builds a Job from the positional surface. Missing trailing
// arguments and none/null placeholders leave their stage unconfigured.
func jobFromArgs(args []string) (*job.Job, error) {
	// Pad so every position can be read uniformly.
	padded := make([]string, 12)
	copy(padded, args)

	j := &job.Job{Origin: padded[0]}
	if job.IsNullText(padded[0]) {
		return nil, fmt.Errorf("origin is mandatory")
	}

	var err error
	if j.GroupBy, err = job.ParseFields(padded[1]); err != nil {
		return nil, fmt.Errorf("group argument: %w", err)
	}
	if j.Aggregations, err = job.ParseAggregations(padded[2]); err != nil {
		return nil, fmt.Errorf("agg argument: %w", err)
	}
	if j.Derived, err = job.ParseDerived(padded[3]); err != nil {
		return nil, fmt.Errorf("derived argument: %w", err)
	}
	if !job.IsNullText(padded[4]) {
		j.Destination = padded[4]
	}
	if j.Pivot, err = job.ParsePivot(padded[5]); err != nil {
		return nil, fmt.Errorf("pivot argument: %w", err)
	}
	j.Human = job.ParseBool(padded[6])
	j.Decimals = job.ParseDecimals(padded[7])
	j.EncodeBase64 = job.ParseBool(padded[8])
	if j.Filter, err = job.ParseFilter(padded[9]); err != nil {
		return nil, fmt.Errorf("filter argument: %w", err)
	}
	if j.Sort, err = job.ParseSort(padded[10]); err != nil {
		return nil, fmt.Errorf("sort argument: %w", err)
	}
	if j.PostFilter, err = job.ParseFilter(padded[11]); err != nil {
		return nil, fmt.Errorf("postfilter argument: %w", err)
	}
	return j, nil
}

func runJob(_ *cobra.Command, args []string) {
	j, err := jobFromArgs(args)
	if err != nil {
		logger.Error("invalid arguments", "error", err.Error())
		fmt.Fprintf(os.Stderr, "✗ Invalid arguments: %v\n", err)
		os.Exit(ExitValidationError)
	}

	os.Exit(execute(j, ExitValidationError))
}

func runJobFile(_ *cobra.Command, args []string) {
	jobPath := args[0]

	result := config.ParseFile(jobPath)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	j, err := config.ConvertToJob(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to convert job file: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if verbose {
		cli.PrintJobSummary(result.Data)
	}

	os.Exit(execute(j, ExitRuntimeError))
}

// execute builds and runs the job. Export failures are reported as a
// tagged line on stdout and count as a clean exit; everything else fatal
// exits with failCode.
func execute(j *job.Job, failCode int) int {
	executor, err := factory.BuildExecutor(j)
	if err != nil {
		logger.Error("invalid job", "error", err.Error())
		fmt.Fprintf(os.Stderr, "✗ Invalid job: %v\n", err)
		return failCode
	}

	result, err := executor.Execute(context.Background())
	if err != nil {
		if errors.Is(err, runtime.ErrExport) {
			fmt.Printf("ERROR_JSON: %v\n", err)
			return ExitSuccess
		}
		cli.PrintExecutionResult(result, err, cli.OutputOptions{Verbose: verbose, Quiet: quiet})
		return failCode
	}

	if verbose {
		cli.PrintExecutionResult(result, nil, cli.OutputOptions{Verbose: verbose, Quiet: quiet})
	}
	return ExitSuccess
}

func runValidate(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !quiet {
		fmt.Fprintf(os.Stderr, "Validating job file: %s\n", jobPath)
	}

	result := config.ParseFile(jobPath)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "✓ Job file is valid (format: %s)\n", result.Format)
		if verbose {
			cli.PrintJobSummary(result.Data)
		}
	}
	os.Exit(ExitSuccess)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
