package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_RemovesOutputs(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "Build", "UefiPayloadPkgX64"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "Conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "Report.log"), []byte("log"), 0o644))

	stdout, _, err := execute(NewCleanCommand(&RootOptions{Format: "text", Source: ws, environ: []string{}}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Removing " + filepath.Join(ws, "Build"),
		"Removing " + filepath.Join(ws, "Conf"),
		"Removing " + filepath.Join(ws, "Report.log"),
		"Clean done",
	}, lines(stdout))
	assert.NoDirExists(t, filepath.Join(ws, "Build"))
}

func TestClean_NothingToRemove(t *testing.T) {
	ws := t.TempDir()

	stdout, stderr, err := execute(NewCleanCommand(&RootOptions{Format: "text", Source: ws, environ: []string{}}))
	require.NoError(t, err)
	assert.Equal(t, "Nothing to clean\n", stdout)
	assert.NotContains(t, stdout, "Clean done")
	assert.Empty(t, stderr)
}

func TestClean_UsesWorkspaceVariable(t *testing.T) {
	source, ws := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "Conf"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(source, "Conf"), 0o755))

	opts := &RootOptions{Format: "json", Source: source, environ: []string{"WORKSPACE=" + ws}}
	stdout, _, err := execute(NewCleanCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Data CleanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, ws, resp.Data.Workspace)
	assert.Equal(t, []string{filepath.Join(ws, "Conf")}, resp.Data.Removed)
	assert.DirExists(t, filepath.Join(source, "Conf"))
}
