package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/puzzlebox/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden traces from this run
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult collects the verdicts of a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

const goldenMismatch = "Golden file mismatch (run with --update to regenerate)"

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Play scenarios against their scene scripts",
		Long: `Play every scenario under a directory and check the outcome.

A scenario loads scene scripts, feeds the engine ticks, clicks and key
presses, then checks its expect steps and final assertions. If
golden/<name>.golden sits beside the scenario, the rule trace must also
match it byte for byte. Golden and scripts directories are not searched.

Exit status is 0 when every scenario passes, 1 when any fails and 2 when
the directory or a flag is unusable.

Examples:
  puzzlebox test ./scenarios
  puzzlebox test ./scenarios --filter "timer-*"
  puzzlebox test ./scenarios --update
  puzzlebox test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces instead of comparing")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only scenarios whose name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	rep := verdicts{w: cmd.OutOrStdout(), quiet: opts.Format == "json"}
	for _, file := range files {
		sr := runScenario(file, opts, cmd, rep)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles lists .yaml and .yml files below dir, skipping golden
// and scripts directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (d.Name() == "golden" || d.Name() == "scripts") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// verdicts prints one ✓ or ✗ line per scenario in text mode.
type verdicts struct {
	w     io.Writer
	quiet bool
}

func (v verdicts) pass(name, note string) ScenarioResult {
	if !v.quiet {
		fmt.Fprintf(v.w, "✓ %s%s\n", name, note)
	}
	return ScenarioResult{Name: name, Pass: true}
}

func (v verdicts) fail(name string, errs ...string) ScenarioResult {
	if !v.quiet {
		fmt.Fprintf(v.w, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(v.w, "  %s\n", e)
		}
	}
	return ScenarioResult{Name: name, Errors: errs}
}

func runScenario(file string, opts *TestOptions, cmd *cobra.Command, rep verdicts) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return rep.fail(filepath.Base(file), fmt.Sprintf("Load error: %v", err))
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	result, err := harness.Run(scenario, harness.WithLogger(formatter.Logger()))
	if err != nil {
		return rep.fail(scenario.Name, fmt.Sprintf("Execution error: %v", err))
	}

	golden := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(scenario.Name, result.Trace, golden); err != nil {
			return rep.fail(scenario.Name, fmt.Sprintf("Golden update error: %v", err))
		}
		return rep.pass(scenario.Name, " (golden updated)")
	}

	errs := slices.Clone(result.Errors)
	match, err := matchGolden(scenario.Name, result.Trace, golden)
	switch {
	case err != nil:
		errs = append(errs, fmt.Sprintf("Golden comparison error: %v", err))
	case !match:
		errs = append(errs, goldenMismatch)
	}
	if !result.Pass || len(errs) > 0 {
		return rep.fail(scenario.Name, errs...)
	}
	return rep.pass(scenario.Name, "")
}

// goldenFilePath maps scenarios/x.yaml to scenarios/golden/x.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	return filepath.Join(filepath.Dir(scenarioFile), "golden", strings.TrimSuffix(base, filepath.Ext(base))+".golden")
}

func writeGolden(name string, trace []harness.TraceEvent, path string) error {
	data, err := harness.MarshalSnapshot(name, trace)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// matchGolden reports whether trace equals the golden file at path. A
// scenario without a golden file always matches.
func matchGolden(name string, trace []harness.TraceEvent, path string) (bool, error) {
	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	got, err := harness.MarshalSnapshot(name, trace)
	if err != nil {
		return false, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return bytes.Equal(bytes.TrimSpace(want), got), nil
}

func testFailure(result TestResult) error {
	if result.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	failure := testFailure(result)
	if failure != nil {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return failure
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := testFailure(result); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
