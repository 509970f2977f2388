package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/roach88/pldbuild/internal/failure"
)

// Commander captures the output of an external command. Probes and checkers
// depend on this rather than on *Runner so tests can script responses.
type Commander interface {
	Output(ctx context.Context, args ...string) (string, error)
}

// Runner executes external commands.
type Runner struct {
	Stdout io.Writer // Child stdout in run mode, and echoed command lines. Defaults to os.Stdout.
	Stderr io.Writer // Child stderr and failure diagnostics. Defaults to os.Stderr.
	Env    []string  // Child environment. Nil inherits the current process environment.
	Dir    string    // Working directory. Empty uses the current directory.
	Echo   bool      // Print the command line before running it.
}

// New creates a Runner writing to the process's standard streams.
func New() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// WithEnv returns a copy of the Runner using env as the child environment.
func (r *Runner) WithEnv(env []string) *Runner {
	c := *r
	c.Env = env
	return &c
}

// Run executes a command, streaming its output, and checks the exit status.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	cmd, err := r.prepare(ctx, args)
	if err != nil {
		return err
	}
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if err := cmd.Run(); err != nil {
		r.report(args)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &failure.Error{
				Code:      failure.ProcessFailed,
				Component: CommandLine(args),
				Message:   fmt.Sprintf("command exited with status %d", exitErr.ExitCode()),
				ExitCode:  exitErr.ExitCode(),
				Echoed:    true,
			}
		}
		fe := failure.Wrap(failure.ProcessFailed, CommandLine(args), "command could not be started", err)
		fe.Echoed = true
		return fe
	}

	return nil
}

// Output executes a command and returns its standard output as text.
// The child's standard error is passed through to Stderr.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	cmd, err := r.prepare(ctx, args)
	if err != nil {
		return "", err
	}
	cmd.Stderr = r.stderr()

	out, err := cmd.Output()
	if err != nil {
		r.report(args)

		fe := failure.Wrap(failure.ProcessFailed, CommandLine(args), "command failed", err)
		fe.Echoed = true
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fe.ExitCode = exitErr.ExitCode()
		}
		return "", fe
	}

	return string(out), nil
}

// CommandLine joins an argument list the way it is shown to the user.
func CommandLine(args []string) string {
	return strings.Join(args, " ")
}

// Builds the exec.Cmd after flushing and echoing.
func (r *Runner) prepare(ctx context.Context, args []string) (*exec.Cmd, error) {
	if len(args) == 0 {
		return nil, errors.New("runner: empty command")
	}

	flush(r.Stdout)
	flush(r.Stderr)

	if r.Echo {
		fmt.Fprintln(r.stdout(), CommandLine(args))
	}

	slog.Debug("exec", "args", args, "dir", r.Dir)

	cmd := exec.CommandContext(ctx, r.resolve(args[0]), args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Env = r.Env
	cmd.Dir = r.Dir
	return cmd, nil
}

// Resolves a bare command name against the PATH of the child environment,
// so tools on directories appended for the child are found. Anything else
// is left to exec's lookup in the current process.
func (r *Runner) resolve(name string) string {
	if r.Env == nil || strings.ContainsAny(name, `/\`) {
		return name
	}
	path, ok := envPath(r.Env, runtime.GOOS == "windows")
	if !ok {
		return name
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		if p, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
			return p
		}
	}
	return name
}

// Returns the last PATH entry in env, matching the name without case on
// Windows.
func envPath(env []string, fold bool) (string, bool) {
	var (
		path  string
		found bool
	)
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if k == "PATH" || (fold && strings.EqualFold(k, "PATH")) {
			path, found = v, true
		}
	}
	return path, found
}

// Prints the failed command line unless it was already echoed.
func (r *Runner) report(args []string) {
	if r.Echo {
		return
	}
	fmt.Fprintf(r.stderr(), "Error in running process:\n  %s\n", CommandLine(args))
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// Flushes w if it buffers output.
func flush(w io.Writer) {
	if f, ok := w.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}
