package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/puzzlebox/internal/compiler"
)

// Issue is one validation error or warning, attributed to a script.
type Issue struct {
	Script  string   `json:"script"`
	Field   string   `json:"field,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Line    int      `json:"line,omitempty"`
	Path    []uint32 `json:"path,omitempty"` // Rule keys of a dependency cycle
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Scripts  int     `json:"scripts"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scripts-dir>",
		Short: "Validate scene scripts",
		Long: `Compile and check every CUE scene script in a directory.

Reports compile errors, authoring mistakes (duplicate keys, results after a
location change, out of range volumes) and file names no scope would load.
Rules that can re-trigger each other are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scriptsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadScripts(scriptsDir, LoadModeCollectAll)

	// Handle directory errors (not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d script(s) in %s", loadResult.FileCount, scriptsDir)

	result := ValidationResult{Scripts: loadResult.FileCount}

	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, Issue{
				Script:  loadErr.Script,
				Code:    loadErr.Code,
				Message: loadErr.Message,
				Line:    lineOf(loadErr.Pos),
			})
		}
	}

	for _, script := range loadResult.Scripts {
		formatter.VerboseLog("Validating script: %s (%d puzzles, %d controls)",
			script.Name, len(script.Puzzles), len(script.Controls))

		if _, ok := ScopeForName(script.Name); !ok {
			result.Errors = append(result.Errors, Issue{
				Script:  script.Name,
				Code:    ErrCodeUnknownScope,
				Message: "no scope loads this script; use universe, a world letter, a room pair or a four-letter node-view",
			})
		}

		for _, verr := range compiler.Validate(script) {
			result.Errors = append(result.Errors, Issue{
				Script:  script.Name,
				Field:   verr.Field,
				Code:    verr.Code,
				Message: verr.Message,
			})
		}

		for _, w := range compiler.AnalyzeCycles(script) {
			result.Warnings = append(result.Warnings, Issue{
				Script:  script.Name,
				Message: w.Message,
				Path:    w.Path,
			})
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	return outputValidateSuccess(formatter, result)
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = true
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	printWarnings(formatter, result.Warnings)
	fmt.Fprintf(formatter.Writer, "✓ All scripts valid (%d checked)\n", result.Scripts)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Directory errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every error and warning found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", err.Script, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.Script)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}
	printWarnings(formatter, result.Warnings)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func printWarnings(formatter *OutputFormatter, warnings []Issue) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s: %s\n", w.Script, w.Message)
	}
}

// ValidateScriptsDir validates all scripts in a directory.
// This is a helper function for external callers.
func ValidateScriptsDir(scriptsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadScripts(scriptsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var errs []compiler.ValidationError
	for _, script := range loadResult.Scripts {
		errs = append(errs, compiler.Validate(script)...)
	}
	return errs, nil
}
