package toolchain

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/roach88/pldbuild/internal/failure"
)

// GCC major versions above this select the GCC5 tag.
const gcc5Threshold = 4

// ClangProbe selects XCODE5 on macOS using the system clang.
type ClangProbe struct{}

// Name returns XCODE5.
func (p *ClangProbe) Name() Name { return XCODE5 }

// Available reports whether clang is on PATH.
func (p *ClangProbe) Available(ctx context.Context, host *Host) bool {
	return host.LookPath == nil || host.lookPath("clang") != ""
}

// Resolve records the clang version.
func (p *ClangProbe) Resolve(ctx context.Context, host *Host) (Descriptor, error) {
	version, err := dumpVersion(ctx, host, "clang")
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:        XCODE5,
		Version:     version,
		InstallPath: installDir(host, "clang"),
	}, nil
}

// GCCProbe selects GCC5 or GCC49 from the system gcc's major version.
type GCCProbe struct{}

// Name returns GCC5; the probe may also resolve to GCC49.
func (p *GCCProbe) Name() Name { return GCC5 }

// Available reports whether gcc is on PATH.
func (p *GCCProbe) Available(ctx context.Context, host *Host) bool {
	return host.LookPath == nil || host.lookPath("gcc") != ""
}

// Resolve picks the tag from gcc -dumpversion.
func (p *GCCProbe) Resolve(ctx context.Context, host *Host) (Descriptor, error) {
	version, err := dumpVersion(ctx, host, "gcc")
	if err != nil {
		return Descriptor{}, err
	}

	major, err := majorVersion(version)
	if err != nil {
		return Descriptor{}, failure.Wrap(failure.ToolchainNotFound, "gcc",
			fmt.Sprintf("unrecognized gcc version %q", version), err)
	}

	name := GCC49
	if major > gcc5Threshold {
		name = GCC5
	}

	return Descriptor{
		Name:        name,
		Version:     version,
		InstallPath: installDir(host, "gcc"),
	}, nil
}

// Runs "<compiler> -dumpversion" and returns the trimmed output.
func dumpVersion(ctx context.Context, host *Host, compiler string) (string, error) {
	out, err := host.Cmd.Output(ctx, compiler, "-dumpversion")
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(out)
	if version == "" {
		return "", ErrNoMatch
	}
	return version, nil
}

// Parses the leading numeric component of a dotted version.
func majorVersion(version string) (int, error) {
	head, _, _ := strings.Cut(version, ".")
	return strconv.Atoi(strings.TrimSpace(head))
}

// Returns the directory holding the compiler, or "" if unknown.
func installDir(host *Host, compiler string) string {
	p := host.lookPath(compiler)
	if p == "" {
		return ""
	}
	return path.Dir(p)
}
