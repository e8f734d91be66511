package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/puzzlebox/internal/store"
)

// SaveOptions holds flags shared by the save subcommands.
type SaveOptions struct {
	*RootOptions
	Database string
}

// SlotInspection is the output of save inspect.
type SlotInspection struct {
	Slot    store.Slot    `json:"slot"`
	Summary store.Summary `json:"summary"`
}

// NewSaveCommand creates the save command group.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Manage save slots",
		Long: `List, inspect and delete the save slots in a save database.

Examples:
  puzzlebox save list --db saves.db
  puzzlebox save inspect --db saves.db 01929b3c-...
  puzzlebox save delete --db saves.db 01929b3c-...`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite save database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List save slots, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "inspect <slot-id>",
		Short:         "Decode a save slot without running it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveInspect(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <slot-id>",
		Short:         "Delete a save slot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveDelete(opts, args[0], cmd)
		},
	})

	return cmd
}

func (o *SaveOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *SaveOptions) open() (*store.Store, error) {
	st, err := store.Open(o.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open save database", err)
	}
	return st, nil
}

// slotError maps a missing slot to a command error.
func slotError(id string, err error) error {
	if errors.Is(err, store.ErrSlotNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("save slot not found: %s", id))
	}
	return WrapExitError(ExitCommandError, "failed to read save slot", err)
}

func runSaveList(opts *SaveOptions, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	slots, err := st.ListSlots(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list save slots", err)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		if slots == nil {
			slots = []store.Slot{}
		}
		return formatter.Success(slots)
	}

	if len(slots) == 0 {
		fmt.Fprintln(formatter.Writer, "No save slots.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tTICK\tSAVED")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Location, s.Tick, s.SavedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runSaveInspect(opts *SaveOptions, id string, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	slot, stream, err := st.ReadSlot(context.Background(), id)
	if err != nil {
		return slotError(id, err)
	}

	formatter := opts.formatter(cmd)
	summary, err := store.Inspect(stream)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "save stream is damaged", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SlotInspection{Slot: slot, Summary: summary})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Slot:     %s (%s)\n", slot.ID, slot.Name)
	fmt.Fprintf(w, "Saved:    %s at tick %d\n", slot.SavedAt.Format(time.RFC3339), slot.Tick)
	fmt.Fprintf(w, "Version:  %d\n", summary.Version)
	fmt.Fprintf(w, "Location: %s\n", summary.Location)
	fmt.Fprintf(w, "State:    %d value(s), %d flag(s)\n", summary.Values, summary.Flags)
	for _, t := range summary.Timers {
		fmt.Fprintf(w, "Timer:    key %d, %d ms left\n", t.Key, t.Ms)
	}
	fmt.Fprint(w, "Chunks:  ")
	for _, c := range summary.Chunks {
		fmt.Fprintf(w, " %s(%d)", c.Tag, c.Size)
	}
	fmt.Fprintln(w)
	return nil
}

func runSaveDelete(opts *SaveOptions, id string, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSlot(context.Background(), id); err != nil {
		return slotError(id, err)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": id})
	}
	fmt.Fprintf(formatter.Writer, "Deleted slot %s\n", id)
	return nil
}
