// Package build drives the downstream EDK II build engine.
//
// It rebuilds the BaseTools utilities when their binaries are missing,
// assembles the engine's command line from the build options and runs it
// with the prepared environment.
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/hostos"
)

// Arch selects the target architectures.
type Arch string

// Supported architecture selections.
const (
	ArchIA32 Arch = "ia32"
	ArchX64  Arch = "x64"
	ArchMix  Arch = "mix"
)

// DefaultArch builds an IA32 entry with an X64 payload.
const DefaultArch = ArchMix

// Platform is the platform description file passed to the engine.
const Platform = "UefiPayloadPkg/UefiPayloadPkg.dsc"

// BaseToolsExecutables must all exist for BaseTools to count as built.
var BaseToolsExecutables = []string{"GenFfs", "GenFv", "GenFw", "GenSec", "LzmaCompress"}

// Archs returns the accepted architecture selections.
func Archs() []Arch {
	return []Arch{ArchIA32, ArchX64, ArchMix}
}

// ParseArch validates an architecture selection.
func ParseArch(s string) (Arch, error) {
	for _, a := range Archs() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid arch %q (must be ia32, x64 or mix)", s)
}

// Flags returns the engine's -a arguments for the selection.
func (a Arch) Flags() []string {
	switch a {
	case ArchIA32:
		return []string{"-a", "IA32"}
	case ArchX64:
		return []string{"-a", "X64"}
	default:
		return []string{"-a", "IA32", "-a", "X64"}
	}
}

// Options describes one engine invocation.
type Options struct {
	OS        string   // Host GOOS; selects build or build.bat.
	Arch      Arch     // Empty means DefaultArch.
	Release   bool     // RELEASE instead of DEBUG.
	Defines   []string // Macros passed as -D NAME[=VALUE].
	ToolChain string   // Toolchain tag for --tagname.
	Jobs      int      // Parallel jobs. Zero uses the CPU count.
}

// Target returns RELEASE or DEBUG.
func (o Options) Target() string {
	if o.Release {
		return "RELEASE"
	}
	return "DEBUG"
}

// Arguments assembles the engine command line.
func Arguments(opts Options) ([]string, error) {
	arch := opts.Arch
	if arch == "" {
		arch = DefaultArch
	}
	if _, err := ParseArch(string(arch)); err != nil {
		return nil, err
	}
	if opts.ToolChain == "" {
		return nil, fmt.Errorf("toolchain tag is required")
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	engine := "build"
	if opts.OS == hostos.Windows {
		engine = "build.bat"
	}

	args := []string{
		engine,
		"--platform", Platform,
		"-b", opts.Target(),
		"--tagname", opts.ToolChain,
		"-n", strconv.Itoa(jobs),
	}
	args = append(args, arch.Flags()...)
	for _, d := range opts.Defines {
		args = append(args, "-D", d)
	}
	return args, nil
}

// Executor runs a command to completion.
type Executor interface {
	Run(ctx context.Context, args ...string) error
}

// Orchestrator runs the build steps inside a source tree.
type Orchestrator struct {
	Exec   Executor  // Runs the engine with the prepared environment.
	OS     string    // Host GOOS.
	Source string    // Source tree root.
	Out    io.Writer // Progress messages. Nil discards.
}

// BaseToolsPresent reports whether every BaseTools executable exists.
func BaseToolsPresent(goos, source string) bool {
	dir := filepath.Join(source, "BaseTools", "Source", "C", "bin")
	if goos == hostos.Windows {
		dir = filepath.Join(source, "BaseTools", "Bin", "Win32")
	}
	for _, name := range BaseToolsExecutables {
		if _, err := os.Stat(filepath.Join(dir, hostos.Executable(goos, name))); err != nil {
			return false
		}
	}
	return true
}

// RebuildBaseTools builds BaseTools when its executables are missing.
// Returns true if a rebuild ran.
func (o *Orchestrator) RebuildBaseTools(ctx context.Context) (bool, error) {
	if BaseToolsPresent(o.OS, o.Source) {
		slog.Debug("BaseTools binaries present")
		return false, nil
	}

	args := []string{"make", "-C", "BaseTools"}
	if o.OS == hostos.Windows {
		o.printf("Could not find pre-built BaseTools binaries, try to rebuild BaseTools ...\n")
		args = []string{`BaseTools\toolsetup.bat`, "forcerebuild"}
	}

	if err := o.Exec.Run(ctx, args...); err != nil {
		return true, failure.Wrap(failure.ProcessFailed, "BaseTools",
			"Build BaseTools failed, please check required build environment and utilities", err)
	}
	return true, nil
}

// Build rebuilds BaseTools if needed and runs the engine.
func (o *Orchestrator) Build(ctx context.Context, opts Options) error {
	opts.OS = o.OS

	args, err := Arguments(opts)
	if err != nil {
		return err
	}

	if _, err := o.RebuildBaseTools(ctx); err != nil {
		return err
	}

	slog.Info("running build engine", "target", opts.Target(), "toolchain", opts.ToolChain, "arch", opts.Arch)
	return o.Exec.Run(ctx, args...)
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Out != nil {
		fmt.Fprintf(o.Out, format, args...)
	}
}
