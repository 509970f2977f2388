package toolchain

import (
	"context"
	"errors"
	"os"

	"github.com/roach88/pldbuild/internal/runner"
)

// Name identifies a toolchain tag understood by the downstream build engine.
type Name string

// Supported toolchain tags.
const (
	VS2019    Name = "VS2019"
	VS2017    Name = "VS2017"
	VS2015x86 Name = "VS2015x86"
	VS2013x86 Name = "VS2013x86"
	XCODE5    Name = "XCODE5"
	GCC49     Name = "GCC49"
	GCC5      Name = "GCC5"
)

// Names returns the fixed set of toolchain tags a resolution can produce.
func Names() []Name {
	return []Name{VS2019, VS2017, VS2015x86, VS2013x86, XCODE5, GCC49, GCC5}
}

// Valid reports whether n is one of [Names].
func (n Name) Valid() bool {
	for _, known := range Names() {
		if n == known {
			return true
		}
	}
	return false
}

// Descriptor describes the resolved toolchain. It is created once per run
// and never modified.
type Descriptor struct {
	Name        Name   `json:"name"`
	Version     string `json:"version"`
	InstallPath string `json:"install_path,omitempty"`
	PrefixVar   string `json:"prefix_var,omitempty"` // Variable the engine reads the install path from. Empty for PATH-based toolchains.
}

// Setter receives exported environment variables.
type Setter interface {
	Set(key, value string)
}

// Export sets PrefixVar to InstallPath. Descriptors without a prefix
// variable export nothing.
func (d Descriptor) Export(env Setter) {
	if d.PrefixVar != "" {
		env.Set(d.PrefixVar, d.InstallPath)
	}
}

// ErrNoMatch is returned by a probe that ran but found no installation.
// The resolver moves on to the next probe.
var ErrNoMatch = errors.New("no matching toolchain installation")

// Probe is one toolchain detection strategy.
type Probe interface {
	// Name returns the tag this probe resolves to.
	Name() Name

	// Available reports whether the probe can run on the host at all.
	Available(ctx context.Context, host *Host) bool

	// Resolve detects the toolchain, returning ErrNoMatch when absent.
	Resolve(ctx context.Context, host *Host) (Descriptor, error)
}

// Env provides read access to environment variables.
type Env interface {
	Lookup(key string) (string, bool)
}

// FileSystem provides the filesystem queries probes need.
type FileSystem interface {
	Exists(path string) bool
	IsDir(path string) bool
	ReadFile(path string) ([]byte, error)
}

// Host is the machine being probed.
type Host struct {
	OS       string                             // GOOS of the host.
	Env      Env                                // Environment variables.
	FS       FileSystem                         // Filesystem access.
	Cmd      runner.Commander                   // Captured command execution.
	LookPath func(file string) (string, error) // Executable lookup. Nil skips lookups.
}

// Looks up an executable, reporting "" when unavailable.
func (h *Host) lookPath(file string) string {
	if h.LookPath == nil {
		return ""
	}
	p, err := h.LookPath(file)
	if err != nil {
		return ""
	}
	return p
}

// OSFileSystem implements FileSystem against the real filesystem.
type OSFileSystem struct{}

// Exists reports whether path exists.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory.
func (OSFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReadFile reads the named file.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
