package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pldbuild", cmd.Use)
	assert.Contains(t, cmd.Long, "universal firmware payload")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"build", "clean", "genhdr", "inspect", "env", "history", "publish", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"source", "history", "profile"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	buildCmd, _, err := cmd.Find([]string{"build"})
	require.NoError(t, err)

	shorthands := map[string]string{"arch": "a", "release": "r", "define": "D", "jobs": "n"}
	for name, short := range shorthands {
		flag := buildCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, short, flag.Shorthand, name)
	}
	assert.Equal(t, "mix", buildCmd.Flags().Lookup("arch").DefValue)
}

func TestExecute_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "UpldInfo.bin")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	code := Execute(context.Background(), []string{"genhdr", out, "UEFI"}, stdout, stderr)
	assert.Equal(t, ExitSuccess, code)
	assert.FileExists(t, out)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestExecute_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid format", []string{"--format", "xml", "version"}},
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"build", "--no-such-flag"}},
		{"missing args", []string{"genhdr"}},
		{"too many args", []string{"inspect", "a", "b"}},
		{"extra args", []string{"clean", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			code := Execute(context.Background(), tt.args, stdout, stderr)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

func TestExecute_ReportedErrorsPrintOnce(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	missing := filepath.Join(t.TempDir(), "missing.bin")

	code := Execute(context.Background(), []string{"--format", "json", "inspect", missing}, stdout, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, stderr.String())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(NewVersionCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Equal(t, "(local)\n", stdout)
}

func TestVersionInfo_String(t *testing.T) {
	info := VersionInfo{Version: "1.2.3", Stage: "main", GitCommit: "abc123", Arch: "amd64"}
	assert.Equal(t, "1.2.3 abc123 [amd64]", info.String())

	info.Stage = "staging"
	assert.Equal(t, "1.2.3+staging abc123 [amd64]", info.String())
}

func TestCurrentVersion_StripsPrefix(t *testing.T) {
	saved := [3]string{version, stage, gitCommit}
	t.Cleanup(func() { version, stage, gitCommit = saved[0], saved[1], saved[2] })

	version, stage, gitCommit = "V2.0.1", "Main", "deadbeef"
	info := CurrentVersion()
	assert.False(t, info.Local)
	assert.Equal(t, "2.0.1", info.Version)
	assert.Equal(t, "main", info.Stage)
}
