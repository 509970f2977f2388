package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/pldbuild/internal/bootstrap"
	"github.com/roach88/pldbuild/internal/build"
	"github.com/roach88/pldbuild/internal/history"
	"github.com/roach88/pldbuild/internal/profile"
	"github.com/roach88/pldbuild/internal/runner"
)

// loadProfile reads --profile, or the workspace profile when present.
// Returns an empty profile when there is none.
func (o *RootOptions) loadProfile() (*profile.Profile, error) {
	path := o.Profile
	if path == "" {
		ws, err := o.workspaceDir()
		if err != nil {
			return nil, err
		}
		path = profile.Find(ws)
	}
	if path == "" {
		return &profile.Profile{}, nil
	}

	slog.Debug("loading profile", "path", path)
	return profile.Load(path)
}

// openHistory opens --history, or the default store in the user data
// directory.
func (o *RootOptions) openHistory() (*history.Store, error) {
	path := o.History
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return history.Open(path)
}

// prepare runs the environment bootstrap against the host.
func (o *RootOptions) prepare(ctx context.Context, source string, out io.Writer, skipConf bool) (*bootstrap.Result, error) {
	return bootstrap.Prepare(ctx, bootstrap.Options{
		OS:       o.hostOS(),
		Source:   source,
		Environ:  o.hostEnviron(),
		Cmd:      o.commands,
		LookPath: o.hostLookPath(),
		Out:      out,
		SkipConf: skipConf,
	})
}

// buildExecutor returns the executor that runs the build engine.
func (o *RootOptions) buildExecutor(env []string, source string, stdout, stderr io.Writer) build.Executor {
	if o.executor != nil {
		return o.executor
	}
	return &runner.Runner{
		Stdout: stdout,
		Stderr: stderr,
		Env:    env,
		Dir:    source,
	}
}
