package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/runner"
	"github.com/roach88/pldbuild/internal/toolchain"
	"github.com/roach88/pldbuild/internal/workspace"
)

type scripted map[string]string

func (s scripted) Output(ctx context.Context, args ...string) (string, error) {
	line := runner.CommandLine(args)
	if out, ok := s[line]; ok {
		return out, nil
	}
	return "", failure.Wrap(failure.ProcessFailed, line, "command failed", errors.New("not found"))
}

// memFS answers probe filesystem queries from a set of existing paths.
type memFS map[string]string

func (m memFS) Exists(path string) bool {
	_, ok := m[path]
	return ok
}

func (m memFS) IsDir(path string) bool {
	return m[path] == "<dir>"
}

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(data), nil
}

func lookPath(found map[string]string) func(string) (string, error) {
	return func(file string) (string, error) {
		if p, ok := found[file]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
}

// newSource creates a source tree with the Conf templates.
func newSource(t *testing.T) string {
	t.Helper()
	source := t.TempDir()
	dir := filepath.Join(source, "BaseTools", "Conf")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range workspace.Templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".template"), []byte(name), 0o644))
	}
	return source
}

const pythonQuery = " -c import sys; import platform; print(platform.python_version())"

var linuxTools = scripted{
	"python3" + pythonQuery: "3.10.12\n",
	"gcc -dumpversion":      "11\n",
	"openssl version":       "OpenSSL 3.0.2\n",
	"nasm -v":               "NASM version 2.15.05\n",
	"git --version":         "git version 2.34.1\n",
}

func TestPrepare_Linux(t *testing.T) {
	source := newSource(t)
	out := &bytes.Buffer{}

	res, err := Prepare(context.Background(), Options{
		OS:       "linux",
		Source:   source,
		Environ:  []string{"PATH=/usr/bin:/bin", "HOME=/home/dev"},
		Cmd:      linuxTools,
		FS:       memFS{},
		LookPath: lookPath(map[string]string{"python3": "/usr/bin/python3", "gcc": "/usr/bin/gcc"}),
		Out:      out,
	})
	require.NoError(t, err)

	env := res.Env
	assert.Equal(t, toolchain.GCC5, res.Toolchain.Name)
	assert.Equal(t, `"/usr/bin/python3"`, env.Get("PYTHON_COMMAND"))
	assert.Equal(t, "/usr/bin:/bin:"+source+"/BaseTools/BinWrappers/PosixLike", env.Get("PATH"))
	assert.Equal(t, DefaultKeyDir, env.Get("SBL_KEY_DIR"))
	assert.Equal(t, source, env.Get("SBL_SOURCE"))
	assert.Equal(t, source, env.Get("WORKSPACE"))
	assert.Equal(t, source+"/BaseTools", env.Get("EDK_TOOLS_PATH"))
	assert.Equal(t, source+"/BaseTools", env.Get("BASE_TOOLS_PATH"))
	assert.Equal(t, source+"/Conf", env.Get("CONF_PATH"))
	assert.Equal(t, "GCC5", env.Get("TOOL_CHAIN"))
	assert.Equal(t, DefaultWinSDKRCPath, env.Get("WINSDK_PATH_FOR_RC_EXE"))
	assert.Equal(t, "/home/dev", env.Get("HOME"))

	_, hasNASM := env.Lookup("NASM_PREFIX")
	assert.False(t, hasNASM, "POSIX hosts get no NASM default")
	_, hasPythonPath := env.Lookup("PYTHONPATH")
	assert.False(t, hasPythonPath)

	require.Len(t, res.Tools, 4)
	assert.Len(t, res.ConfCopied, 3)
	assert.FileExists(t, filepath.Join(source, "Conf", "target.txt"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Using /usr/bin/python3, Version 3.10.12", lines[0])
	assert.Equal(t, "Using GCC5, Version 11", lines[1])
}

func TestPrepare_KeepsConfiguredWorkspaceAndKeyDir(t *testing.T) {
	source := newSource(t)
	ws := t.TempDir()

	res, err := Prepare(context.Background(), Options{
		OS:       "linux",
		Source:   source,
		Environ:  []string{"WORKSPACE=" + ws, "SBL_KEY_DIR=/keys"},
		Cmd:      linuxTools,
		FS:       memFS{},
		LookPath: lookPath(map[string]string{"gcc": "/usr/bin/gcc"}),
	})
	require.NoError(t, err)

	assert.Equal(t, ws, res.Env.Get("WORKSPACE"))
	assert.Equal(t, ws+"/Conf", res.Env.Get("CONF_PATH"))
	assert.Equal(t, "/keys", res.Env.Get("SBL_KEY_DIR"))
	assert.FileExists(t, filepath.Join(ws, "Conf", "tools_def.txt"))
	assert.NoDirExists(t, filepath.Join(source, "Conf"))
}

func TestPrepare_SecondRunCopiesNothing(t *testing.T) {
	source := newSource(t)
	opts := Options{
		OS:       "linux",
		Source:   source,
		Environ:  []string{},
		Cmd:      linuxTools,
		FS:       memFS{},
		LookPath: lookPath(map[string]string{"gcc": "/usr/bin/gcc"}),
	}

	_, err := Prepare(context.Background(), opts)
	require.NoError(t, err)
	res, err := Prepare(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, res.ConfCopied)
}

const (
	winPF      = `C:\Program Files (x86)`
	winVswhere = winPF + `\Microsoft Visual Studio\Installer\vswhere.exe`
	winVSRoot  = winPF + `\Microsoft Visual Studio\2019\Professional`
)

// windowsHost returns a Windows host with VS2019 and every tool at its
// default location.
func windowsHost() (memFS, scripted) {
	fs := memFS{
		winVswhere: "",
		winVSRoot:  "<dir>",
		winVSRoot + `\VC\Auxiliary\Build\Microsoft.VCToolsVersion.default.txt`: "14.29.30133",
	}
	cmd := scripted{
		"python" + pythonQuery:                          "3.9.13\r\n",
		winVswhere + " -all -property installationPath": winVSRoot + "\r\n",
		`C:\Openssl\openssl version`:                    "OpenSSL 1.1.1q\r\n",
		`C:\Nasm\nasm -v`:                               "NASM version 2.16.01\r\n",
		"git --version":                                 "git version 2.40.0.windows.1\r\n",
	}
	return fs, cmd
}

func TestPrepare_Windows(t *testing.T) {
	fs, cmd := windowsHost()

	res, err := Prepare(context.Background(), Options{
		OS:       "windows",
		Source:   `C:\src\edk2`,
		Environ:  []string{`PATH=C:\Windows`, "ProgramFiles(x86)=" + winPF},
		Cmd:      cmd,
		FS:       fs,
		LookPath: lookPath(nil),
		SkipConf: true,
	})
	require.NoError(t, err)

	env := res.Env
	assert.Equal(t, toolchain.VS2019, res.Toolchain.Name)
	assert.Equal(t, winVSRoot+`\VC\Tools\MSVC\14.29.30133\`, env.Get("VS2019_PREFIX"))
	assert.Equal(t, `"python"`, env.Get("PYTHON_COMMAND"))
	assert.Equal(t, `C:\Windows;C:\src\edk2\BaseTools\Bin\Win32;C:\src\edk2\BaseTools\BinWrappers\WindowsLike`, env.Get("PATH"))
	assert.Equal(t, `C:\src\edk2\BaseTools\Source\Python`, env.Get("PYTHONPATH"))
	assert.Equal(t, DefaultNASMPrefix, env.Get("NASM_PREFIX"))
	assert.Equal(t, DefaultOpenSSLPath, env.Get("OPENSSL_PATH"))
	assert.Equal(t, DefaultIASLPrefix, env.Get("IASL_PREFIX"))
	assert.Equal(t, `C:\src\edk2\Conf`, env.Get("CONF_PATH"))
	assert.Equal(t, "VS2019", env.Get("TOOL_CHAIN"))
	assert.Nil(t, res.ConfCopied)
}

func TestPrepare_WindowsMixedCaseNames(t *testing.T) {
	fs, cmd := windowsHost()

	res, err := Prepare(context.Background(), Options{
		OS:       "windows",
		Source:   `C:\src\edk2`,
		Environ:  []string{`Path=C:\Windows`, `Workspace=D:\ws`, "ProgramFiles(x86)=" + winPF},
		Cmd:      cmd,
		FS:       fs,
		LookPath: lookPath(nil),
		SkipConf: true,
	})
	require.NoError(t, err)

	var paths []string
	for _, e := range res.Env.Environ() {
		if strings.HasPrefix(strings.ToUpper(e), "PATH=") {
			paths = append(paths, e)
		}
	}
	assert.Equal(t, []string{
		`Path=C:\Windows;C:\src\edk2\BaseTools\Bin\Win32;C:\src\edk2\BaseTools\BinWrappers\WindowsLike`,
	}, paths)
	assert.Equal(t, `D:\ws`, res.Env.Get("WORKSPACE"))
	assert.Equal(t, `D:\ws\Conf`, res.Env.Get("CONF_PATH"))
}

func TestPrepare_UnsupportedPlatform(t *testing.T) {
	_, err := Prepare(context.Background(), Options{
		OS:      "plan9",
		Source:  t.TempDir(),
		Environ: []string{},
		Cmd:     scripted{},
		FS:      memFS{},
	})
	require.Error(t, err)
	assert.True(t, failure.IsUnsupportedPlatform(err))
}

func TestPrepare_OldInterpreterStopsBeforeToolchain(t *testing.T) {
	cmd := scripted{
		"python3" + pythonQuery: "3.5.2\n",
	}

	_, err := Prepare(context.Background(), Options{
		OS:       "linux",
		Source:   newSource(t),
		Environ:  []string{},
		Cmd:      cmd,
		FS:       memFS{},
		LookPath: lookPath(nil),
	})
	require.Error(t, err)
	assert.True(t, failure.IsUnsupportedVersion(err))
}

func TestPrepare_NoCompiler(t *testing.T) {
	cmd := scripted{
		"python3" + pythonQuery: "3.11.4\n",
	}

	_, err := Prepare(context.Background(), Options{
		OS:       "linux",
		Source:   newSource(t),
		Environ:  []string{},
		Cmd:      cmd,
		FS:       memFS{},
		LookPath: lookPath(nil),
	})
	require.Error(t, err)
	assert.True(t, failure.IsToolchainNotFound(err))
}

func TestPrepare_MissingNASM(t *testing.T) {
	cmd := scripted{}
	for k, v := range linuxTools {
		if !strings.HasPrefix(k, "nasm") {
			cmd[k] = v
		}
	}

	_, err := Prepare(context.Background(), Options{
		OS:       "linux",
		Source:   newSource(t),
		Environ:  []string{},
		Cmd:      cmd,
		FS:       memFS{},
		LookPath: lookPath(map[string]string{"gcc": "/usr/bin/gcc"}),
	})
	require.Error(t, err)
	assert.True(t, failure.IsToolNotFound(err))
	assert.Contains(t, err.Error(), "NASM_PREFIX")
}
