package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/harness"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Kind string // optional - filter to fire, location or effect
	Key  uint32 // optional - filter to one state key
}

// StartEdge links an effect to the rule whose results started it.
type StartEdge struct {
	Rule   uint32 `json:"rule"`
	Effect uint32 `json:"effect"`
	Type   string `json:"type"`
	Tick   int64  `json:"tick"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Scenario string               `json:"scenario"`
	Timeline []harness.TraceEvent `json:"timeline"`
	Starts   []StartEdge          `json:"starts"`
	Stats    TraceStats           `json:"stats"`
	Pass     bool                 `json:"pass"`
	Errors   []string             `json:"errors,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int   `json:"total_events"`
	Fires       int   `json:"fires"`
	Locations   int   `json:"locations"`
	Effects     int   `json:"effects"`
	Ticks       int64 `json:"ticks"`
}

var traceKinds = []string{string(engine.TraceFire), string(engine.TraceLocation), string(engine.TraceEffect)}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario.yaml>",
		Short: "Show the rule trace of a scenario",
		Long: `Run a scenario and show what the engine did, tick by tick.

The output includes:
- Timeline: every rule fire, location change and started effect
- Starts: which fired rule started each effect
- Stats: Summary statistics for the run

Expect steps and assertions are still checked; failures are listed but
do not change the exit code.

Examples:
  puzzlebox trace scenarios/timer.yaml
  puzzlebox trace scenarios/timer.yaml --kind fire
  puzzlebox trace scenarios/timer.yaml --key 601 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (fire|location|effect)")
	cmd.Flags().Uint32Var(&opts.Key, "key", 0, "filter to events for one state key")

	return cmd
}

func runTrace(opts *TraceOptions, scenarioPath string, cmd *cobra.Command) error {
	if opts.Kind != "" && !slices.Contains(traceKinds, opts.Kind) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, traceKinds))
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	run, err := harness.Run(scenario, harness.WithLogger(formatter.Logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	result := TraceResult{
		Scenario: scenario.Name,
		Timeline: filterTimeline(run.Trace, opts.Kind, opts.Key),
		Starts:   buildStarts(run.Trace, opts.Key),
		Stats:    traceStats(run.Trace),
		Pass:     run.Pass,
		Errors:   run.Errors,
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

// filterTimeline keeps the events matching kind and key. Location events
// carry no key and are dropped by a key filter.
func filterTimeline(trace []harness.TraceEvent, kind string, key uint32) []harness.TraceEvent {
	timeline := []harness.TraceEvent{}
	for _, ev := range trace {
		if kind != "" && ev.Kind != kind {
			continue
		}
		if key != 0 && ev.Key != key {
			continue
		}
		timeline = append(timeline, ev)
	}
	return timeline
}

// buildStarts pairs each effect with the nearest preceding fire on the same
// tick. A rule's fire event is traced before its results run, so that fire
// is the one whose results started the effect.
func buildStarts(trace []harness.TraceEvent, key uint32) []StartEdge {
	edges := []StartEdge{}
	var last *harness.TraceEvent
	for i := range trace {
		ev := &trace[i]
		switch ev.Kind {
		case string(engine.TraceFire):
			last = ev
		case string(engine.TraceEffect):
			if last == nil || last.Tick != ev.Tick {
				continue
			}
			if key != 0 && key != ev.Key && key != last.Key {
				continue
			}
			edges = append(edges, StartEdge{Rule: last.Key, Effect: ev.Key, Type: ev.Detail, Tick: ev.Tick})
		}
	}
	return edges
}

func traceStats(trace []harness.TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(trace)}
	for _, ev := range trace {
		switch ev.Kind {
		case string(engine.TraceFire):
			stats.Fires++
		case string(engine.TraceLocation):
			stats.Locations++
		case string(engine.TraceEffect):
			stats.Effects++
		}
		stats.Ticks = max(stats.Ticks, ev.Tick)
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Scenario: %s\n", result.Scenario)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Starts ===")
	if len(result.Starts) == 0 {
		fmt.Fprintln(w, "  (no effects started)")
	} else {
		for _, edge := range result.Starts {
			fmt.Fprintf(w, "  [%d] %d -[%s]-> %d\n", edge.Tick, edge.Rule, edge.Type, edge.Effect)
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Fires:        %d\n", result.Stats.Fires)
	fmt.Fprintf(w, "  Locations:    %d\n", result.Stats.Locations)
	fmt.Fprintf(w, "  Effects:      %d\n", result.Stats.Effects)
	fmt.Fprintf(w, "  Ticks:        %d\n", result.Stats.Ticks)

	if !result.Pass {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Failures ===")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event harness.TraceEvent) {
	switch event.Kind {
	case string(engine.TraceFire):
		fmt.Fprintf(w, "  [%d] FIRE %d (%s)\n", event.Tick, event.Key, event.Scope)
	case string(engine.TraceLocation):
		fmt.Fprintf(w, "  [%d] GOTO %s\n", event.Tick, event.Location)
	case string(engine.TraceEffect):
		fmt.Fprintf(w, "  [%d] FX   %d %s (%s)\n", event.Tick, event.Key, event.Detail, event.Scope)
	}
}
