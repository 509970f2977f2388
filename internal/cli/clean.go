package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/workspace"
)

// CleanResult lists the removed workspace entries.
type CleanResult struct {
	Workspace string   `json:"workspace"`
	Removed   []string `json:"removed"`
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs and generated configuration",
		Long: `Remove Build/, Conf/ and Report.log from the workspace.

The workspace is $WORKSPACE, or the source root when it is unset. Entries
that do not exist are skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(rootOpts, cmd)
		},
	}

	return cmd
}

func runClean(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ws, err := opts.workspaceDir()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	removed, err := workspace.Clean(ws)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	if removed == nil {
		removed = []string{}
	}

	return formatter.Emit(CleanResult{Workspace: ws, Removed: removed}, func(w io.Writer) {
		if len(removed) == 0 {
			fmt.Fprintln(w, "Nothing to clean")
			return
		}
		for _, p := range removed {
			fmt.Fprintf(w, "Removing %s\n", p)
		}
		fmt.Fprintln(w, "Clean done")
	})
}
