package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	Limit int
}

// RunDetail is a run with its artifacts.
type RunDetail struct {
	history.Run
	Artifacts []history.Artifact `json:"artifacts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded builds",
		Long: `List recent builds, newest first, or show one run with its artifacts.

Runs are recorded by the build command in the history database.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(cmd.Context(), rootOpts, args[0], cmd)
			}
			return runHistoryList(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", history.DefaultListLimit, "maximum number of runs to list")

	return cmd
}

func runHistoryList(ctx context.Context, rootOpts *RootOptions, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	store, err := rootOpts.openHistory()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	return formatter.Emit(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No builds recorded")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tTOOLCHAIN\tTARGET\tARCH")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Toolchain, r.Target, r.Arch)
		}
		tw.Flush()
	})
}

func runHistoryShow(ctx context.Context, rootOpts *RootOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	store, err := rootOpts.openHistory()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer store.Close()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	artifacts, err := store.Artifacts(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	return formatter.Emit(RunDetail{Run: run, Artifacts: artifacts}, func(w io.Writer) {
		fmt.Fprintln(w, Heading("Run "+run.ID))
		fmt.Fprintf(w, "Command:   %s %v\n", run.Command, run.Args)
		fmt.Fprintf(w, "Status:    %s (exit %d)\n", run.Status, run.ExitCode)
		if run.Toolchain != "" {
			fmt.Fprintf(w, "Toolchain: %s %s\n", run.Toolchain, run.ToolchainVersion)
		}
		fmt.Fprintf(w, "Target:    %s %s\n", run.Target, run.Arch)
		fmt.Fprintf(w, "Workspace: %s\n", run.Workspace)
		fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
		if !run.FinishedAt.IsZero() {
			fmt.Fprintf(w, "Finished:  %s\n", run.FinishedAt.Local().Format(time.DateTime))
		}
		if run.Error != "" {
			fmt.Fprintf(w, "Error:     %s\n", run.Error)
		}
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %s  %d  %s", a.Digest, a.Size, a.Path)
			if a.Location != "" {
				fmt.Fprintf(w, "  %s", a.Location)
			}
			fmt.Fprintln(w)
		}
	})
}
