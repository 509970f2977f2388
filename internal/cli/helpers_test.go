package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/runner"
	"github.com/roach88/pldbuild/internal/workspace"
)

const pythonQuery = " -c import sys; import platform; print(platform.python_version())"

// scripted answers version queries by command line.
type scripted map[string]string

func (s scripted) Output(ctx context.Context, args ...string) (string, error) {
	line := runner.CommandLine(args)
	if out, ok := s[line]; ok {
		return out, nil
	}
	return "", failure.Wrap(failure.ProcessFailed, line, "command failed", errors.New("not found"))
}

func linuxTools() scripted {
	return scripted{
		"python3" + pythonQuery: "3.10.12\n",
		"gcc -dumpversion":      "11\n",
		"openssl version":       "OpenSSL 3.0.2\n",
		"nasm -v":               "NASM version 2.15.05\n",
		"git --version":         "git version 2.34.1\n",
	}
}

// fakeEngine records executed command lines. On a "build" call it writes
// the payload outputs a real engine would produce.
type fakeEngine struct {
	calls   [][]string
	outputs map[string]string // path relative to Build/ -> content
	fail    error
	ws      string
}

func (e *fakeEngine) Run(ctx context.Context, args ...string) error {
	e.calls = append(e.calls, args)
	if e.fail != nil {
		return e.fail
	}
	if args[0] != "build" {
		return nil
	}
	for rel, content := range e.outputs {
		p := filepath.Join(e.ws, workspace.BuildDir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func lookPath(found map[string]string) func(string) (string, error) {
	return func(file string) (string, error) {
		if p, ok := found[file]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
}

// newSourceTree creates a source tree with the Conf templates.
func newSourceTree(t *testing.T) string {
	t.Helper()
	source := t.TempDir()
	dir := filepath.Join(source, "BaseTools", "Conf")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range workspace.Templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".template"), []byte(name), 0o644))
	}
	return source
}

// newTestOptions returns options for a linux host with every tool present.
func newTestOptions(t *testing.T, format string) (*RootOptions, *fakeEngine) {
	t.Helper()
	source := newSourceTree(t)
	engine := &fakeEngine{ws: source}

	opts := &RootOptions{
		Format:   format,
		Source:   source,
		History:  filepath.Join(t.TempDir(), "history.db"),
		goos:     "linux",
		environ:  []string{"PATH=/usr/bin:/bin", "HOME=/home/dev"},
		commands: linuxTools(),
		executor: engine,
		lookPath: lookPath(map[string]string{"python3": "/usr/bin/python3", "gcc": "/usr/bin/gcc"}),
	}
	return opts, engine
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if args == nil {
		args = []string{} // nil makes cobra read os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
