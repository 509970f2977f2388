package cli

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pldbuild/internal/history"
)

// seedHistory records a finished build with one artifact and returns its id.
func seedHistory(t *testing.T, path string) string {
	t.Helper()
	ctx := context.Background()
	store, err := history.Open(path)
	require.NoError(t, err)
	defer store.Close()

	failed, err := store.RecordRun(ctx, history.Run{Command: "build", Target: "DEBUG", Arch: "mix"})
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, failed.ID, ExitFailure, errors.New("TOOL_NOT_FOUND: nasm")))

	run, err := store.RecordRun(ctx, history.Run{Command: "build", Args: []string{"--release"}, Target: "RELEASE", Arch: "x64"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateToolchain(ctx, run.ID, "GCC5", "11"))
	require.NoError(t, store.RecordArtifact(ctx, history.Artifact{
		RunID:  run.ID,
		Path:   "/ws/Build/UPLD.fd",
		Digest: "sha256:2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae",
		Size:   3,
	}))
	require.NoError(t, store.FinishRun(ctx, run.ID, ExitSuccess, nil))
	return run.ID
}

func TestHistory_List(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	id := seedHistory(t, path)

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text", History: path}))
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 3)
	assert.Contains(t, out[0], "STATUS")
	assert.Contains(t, out[1], id, "newest first")
	assert.Contains(t, out[1], "succeeded")
	assert.Contains(t, out[2], "failed")
}

func TestHistory_ListLimitJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	id := seedHistory(t, path)

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json", History: path}), "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data []history.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, id, resp.Data[0].ID)
	assert.Equal(t, "GCC5", resp.Data[0].Toolchain)
}

func TestHistory_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text", History: path}))
	require.NoError(t, err)
	assert.Equal(t, "No builds recorded\n", stdout)
}

func TestHistory_Show(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	id := seedHistory(t, path)

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json", History: path}), id)
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, id, resp.Data.ID)
	assert.Equal(t, []string{"--release"}, resp.Data.Args)
	require.Len(t, resp.Data.Artifacts, 1)
	assert.Equal(t, "/ws/Build/UPLD.fd", resp.Data.Artifacts[0].Path)
}

func TestHistory_ShowText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	id := seedHistory(t, path)

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text", History: path}), id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Toolchain: GCC5 11")
	assert.Contains(t, stdout, "/ws/Build/UPLD.fd")
}

func TestHistory_ShowUnknownRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, path)

	stdout, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text", History: path}), "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, history.ErrRunNotFound))
	assert.Contains(t, stdout, "run not found")
}
