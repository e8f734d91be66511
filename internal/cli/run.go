package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // overrides save_db from the config
	Ticks    int    // stop after this many updates; 0 runs until interrupted
	Realtime bool   // pace updates to tick_ms of wall time
	Load     string // slot ID to restore before the first update
	Resume   string // restore the newest slot with this name
	Save     string // save into a slot with this name on exit
}

// RunSummary is what the run command reports when the loop stops.
type RunSummary struct {
	Ticks    int64  `json:"ticks"`
	Location string `json:"location"`
	Effects  int    `json:"effects"`
	Loaded   string `json:"loaded,omitempty"`
	Saved    string `json:"saved,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <game.yaml>",
		Short: "Run the engine headless",
		Long: `Run the puzzle engine headless against a game config.

The scripts directory named by the config is compiled up front, then the
update loop runs until --ticks updates have passed or the process is
interrupted. Renderer and audio calls are logged at debug level.

Saves live in the SQLite database named by save_db (or --db):
--load and --resume restore a slot before the first update and --save
writes one when the loop stops.

Examples:
  puzzlebox run game.yaml --ticks 600
  puzzlebox run game.yaml --realtime --save autosave
  puzzlebox run game.yaml --resume autosave --ticks 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGame(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite save database (overrides save_db)")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "number of updates to run (0 = until interrupted)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace updates to tick_ms of wall time")
	cmd.Flags().StringVar(&opts.Load, "load", "", "save slot ID to restore")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "restore the newest save slot with this name")
	cmd.Flags().StringVar(&opts.Save, "save", "", "save into a slot with this name on exit")
	cmd.MarkFlagsMutuallyExclusive("load", "resume")

	return cmd
}

func runGame(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := formatter.Logger()

	if opts.Ticks < 0 {
		return NewExitError(ExitCommandError, "--ticks must be non-negative")
	}

	cfg, err := LoadGameConfig(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeLoadFailed, err)
	}
	if opts.Database != "" {
		cfg.SaveDB = opts.Database
	}
	if cfg.SaveDB == "" && (opts.Load != "" || opts.Resume != "" || opts.Save != "") {
		return NewExitError(ExitCommandError, "save slots need save_db in the config or --db")
	}

	// Compile every script up front so content errors surface before the loop
	logger.Info("compiling scripts", "dir", cfg.Scripts)
	loadResult, loadErrors := LoadScripts(cfg.Scripts, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to compile scripts", loadErrors[0])
	}
	logger.Info("scripts compiled", "count", len(loadResult.Scripts))

	engineOpts, err := cfg.EngineOptions(logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid game config", err)
	}
	eng := engine.New(loadResult.Source, engineOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := RunSummary{}

	var st *store.Store
	if cfg.SaveDB != "" {
		logger.Info("opening save database", "path", cfg.SaveDB)
		st, err = store.Open(cfg.SaveDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open save database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing save database", "error", closeErr)
			}
		}()
	}

	if id := opts.Load; id != "" || opts.Resume != "" {
		if id == "" {
			slot, err := st.LatestSlot(ctx, opts.Resume)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("no save named %q", opts.Resume), err)
			}
			id = slot.ID
		}
		slot, err := st.LoadGame(ctx, id, eng)
		if err != nil {
			if !engine.IsSaveError(err) {
				return WrapExitError(ExitCommandError, "failed to load save", err)
			}
			// The engine already fell back to the start location
			logger.Warn("save rejected, starting fresh", "slot", id, "error", err)
		} else {
			summary.Loaded = slot.ID
			logger.Info("save restored", "slot", slot.ID, "name", slot.Name, "location", slot.Location)
		}
	}

	logger.Info("engine starting", "scripts", cfg.Scripts, "tick_ms", cfg.TickMs, "ticks", opts.Ticks)
	if err := tickLoop(ctx, logger, eng, cfg.TickMs, opts.Ticks, opts.Realtime); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	logger.Info("engine stopped", "tick", eng.Tick(), "location", eng.CurrentLocation().String())

	if opts.Save != "" {
		// The run context may be cancelled by now; the save must still land
		slot, err := st.SaveGame(context.WithoutCancel(ctx), opts.Save, eng)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to save game", err)
		}
		summary.Saved = slot.ID
		logger.Info("game saved", "slot", slot.ID, "name", slot.Name)
	}

	summary.Ticks = eng.Tick()
	summary.Location = eng.CurrentLocation().String()
	summary.Effects = eng.SideFXCount()
	return outputRunSummary(formatter, summary)
}

// tickLoop calls Update until ticks updates have run (0 = no limit) or ctx
// is done. In realtime mode updates are paced by a ticker.
func tickLoop(ctx context.Context, logger *slog.Logger, eng *engine.Engine, tickMs, ticks int, realtime bool) error {
	var pace <-chan time.Time
	if realtime && tickMs > 0 {
		ticker := time.NewTicker(time.Duration(tickMs) * time.Millisecond)
		defer ticker.Stop()
		pace = ticker.C
	}

	for n := 0; ticks == 0 || n < ticks; n++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		eng.Update(tickMs)
		if eng.Tick()%600 == 0 {
			logger.Debug("engine heartbeat", "tick", eng.Tick(), "location", eng.CurrentLocation().String(), "effects", eng.SideFXCount())
		}
	}
	return nil
}

func outputRunSummary(formatter *OutputFormatter, summary RunSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Ran %d tick(s), now at %s with %d effect(s) running\n", summary.Ticks, summary.Location, summary.Effects)
	if summary.Loaded != "" {
		fmt.Fprintf(w, "Restored slot %s\n", summary.Loaded)
	}
	if summary.Saved != "" {
		fmt.Fprintf(w, "Saved slot %s\n", summary.Saved)
	}
	return nil
}
