package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/build"
	"github.com/roach88/pldbuild/internal/envctx"
	"github.com/roach88/pldbuild/internal/publish"
	"github.com/roach88/pldbuild/internal/runner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Source  string // source tree root; defaults to the current directory
	History string // history database; defaults to the XDG data directory
	Profile string // build profile; defaults to <workspace>/pldbuild.yaml

	// Host access, replaced in tests.
	goos     string
	environ  []string
	commands runner.Commander
	executor build.Executor
	lookPath func(string) (string, error)
	objects  publish.ObjectStore
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pldbuild CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pldbuild",
		Short: "Universal payload build front end",
		Long: `Prepare the host environment and drive the EDK II build engine for the
universal firmware payload.

pldbuild verifies the required tools, resolves a compiler toolchain,
bootstraps the workspace Conf files, runs the build and stamps the payload
info header.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", "source tree root (default: current directory)")
	cmd.PersistentFlags().StringVar(&opts.History, "history", "", "build history database (default: XDG data directory)")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", "", "build profile (default: <workspace>/pldbuild.yaml)")

	// Add subcommands
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewGenHdrCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewEnvCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter creates the output formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// exactArgs is cobra.ExactArgs with a command-error exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// rangeArgs is cobra.RangeArgs with a command-error exit code.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

func (o *RootOptions) hostOS() string {
	if o.goos != "" {
		return o.goos
	}
	return runtime.GOOS
}

func (o *RootOptions) hostEnviron() []string {
	if o.environ != nil {
		return o.environ
	}
	return os.Environ()
}

func (o *RootOptions) lookupEnv(key string) (string, bool) {
	return envctx.NewHostBuilder(o.hostOS(), o.hostEnviron()).Lookup(key)
}

func (o *RootOptions) hostLookPath() func(string) (string, error) {
	if o.lookPath != nil {
		return o.lookPath
	}
	return exec.LookPath
}

// sourceDir returns the source tree root.
func (o *RootOptions) sourceDir() (string, error) {
	if o.Source != "" {
		return o.Source, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine source directory: %w", err)
	}
	return dir, nil
}

// workspaceDir returns $WORKSPACE, or the source root when unset.
func (o *RootOptions) workspaceDir() (string, error) {
	if ws, ok := o.lookupEnv("WORKSPACE"); ok && ws != "" {
		return ws, nil
	}
	return o.sourceDir()
}

// Execute runs the CLI with args and returns the process exit code.
// Errors not already reported by a command are written to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.reported {
			fmt.Fprintln(stderr, "Error:", exitErr.Error())
		}
		return exitErr.Code
	}

	// Unknown commands and other cobra errors are usage errors.
	fmt.Fprintln(stderr, "Error:", err)
	return ExitCommandError
}
