package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/runner"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("TOOL_NOT_FOUND", "nasm missing", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TOOL_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "nasm missing", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Clean done")
	require.NoError(t, err)
	assert.Equal(t, "Clean done\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("COMMAND_ERROR", "bad input", map[string]string{"file": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Error [COMMAND_ERROR]: bad input\n", buf.String(), "details only shown when verbose")
}

func TestOutputFormatter_Emit(t *testing.T) {
	text := func(w io.Writer) { fmt.Fprintln(w, "rendered") }

	buf := &bytes.Buffer{}
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: buf}).Emit(42, text))
	assert.Equal(t, "rendered\n", buf.String())

	buf.Reset()
	require.NoError(t, (&OutputFormatter{Format: "json", Writer: buf}).Emit(42, text))
	assert.JSONEq(t, `{"status":"ok","data":42}`, buf.String())
}

func TestOutputFormatter_FailUsesFailureCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := &failure.Error{Code: failure.ProcessFailed, Component: "build", Message: "exited", ExitCode: 3}
	err := formatter.Fail(ExitFailure, cause)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, failure.IsProcessFailed(err), "cause stays reachable")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PROCESS_FAILED", resp.Error.Code)
	assert.Equal(t, 3, resp.Error.ExitCode)
}

func TestOutputFormatter_FailShowsCommandLineOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	buf := &bytes.Buffer{}
	r := &runner.Runner{Stdout: buf, Stderr: buf}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	runErr := r.Run(context.Background(), "sh", "-c", "exit 3")
	require.Error(t, runErr)
	err := formatter.Fail(ExitFailure, failure.Wrap(failure.ProcessFailed, "BaseTools", "Build BaseTools failed", runErr))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "sh -c exit 3"), out)
	assert.Equal(t, 1, strings.Count(out, "PROCESS_FAILED"), out)
	assert.Contains(t, out, "Error [PROCESS_FAILED]: Build BaseTools failed (BaseTools): command exited with status 3\n")
	assert.Equal(t, 3, failure.ExitCodeOf(err))
}

func TestOutputFormatter_FailJSONKeepsCommandLine(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := &failure.Error{Code: failure.ProcessFailed, Component: "make -C BaseTools", Message: "command exited with status 2", ExitCode: 2, Echoed: true}
	_ = formatter.Fail(ExitFailure, cause)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "command exited with status 2 (make -C BaseTools)", resp.Error.Message)
}

func TestOutputFormatter_FailPlainErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitCommandError, errors.New("no such file"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [COMMAND_ERROR]: no such file\n", buf.String())

	buf.Reset()
	err = formatter.Fail(ExitFailure, errors.New("disk full"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeInternal)
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("copied %d", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "copied 3\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.Equal(t, "copied 3\n", errOut.String())
}

func TestOutputFormatter_Progress(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	text := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	assert.Same(t, out, text.Progress())

	js := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	assert.Same(t, errOut, js.Progress())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("x")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "inner: x", WrapExitError(ExitFailure, "inner", errors.New("x")).Error())
}
