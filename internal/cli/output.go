package cli

import (
	"fmt"
	"os"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/runtime"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintExecutionResult displays the run summary on stderr.
func PrintExecutionResult(result *runtime.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(os.Stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Job execution failed")
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "  Stage: %s\n", result.Error.Stage)
			fmt.Fprintf(os.Stderr, "  Error: %s\n", result.Error.Message)
		}
		return
	}

	if opts.Quiet {
		return
	}
	fmt.Fprintln(os.Stderr, "✓ Job executed successfully")
	fmt.Fprintf(os.Stderr, "  Rows in: %d\n", result.RowsIn)
	fmt.Fprintf(os.Stderr, "  Rows out: %d\n", result.RowsOut)
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
}

// PrintJobSummary prints the essentials of a parsed job document.
func PrintJobSummary(data map[string]interface{}) {
	if data == nil {
		return
	}
	if origin, ok := data["origin"].(string); ok {
		fmt.Fprintf(os.Stderr, "  Origin: %s\n", origin)
	}
	if dest, ok := data["destination"].(string); ok && dest != "" {
		fmt.Fprintf(os.Stderr, "  Destination: %s\n", dest)
	}
}
