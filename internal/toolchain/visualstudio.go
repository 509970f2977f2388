package toolchain

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/pldbuild/internal/hostos"
)

const (
	// Marker file inside a Visual Studio installation holding the MSVC tools version.
	vcVersionMarker = `VC\Auxiliary\Build\Microsoft.VCToolsVersion.default.txt`

	// Path segment prefix carrying the version of a legacy installation.
	legacyVersionSegment = "Microsoft Visual Studio "
)

// Caches the vswhere installation list across probes within one resolution.
type vsInstances struct {
	done  bool
	paths []string
	err   error
}

// Returns the installation directories reported by vswhere.
func (v *vsInstances) list(ctx context.Context, host *Host) ([]string, error) {
	if v.done {
		return v.paths, v.err
	}
	v.done = true

	out, err := host.Cmd.Output(ctx, vswherePath(host), "-all", "-property", "installationPath")
	if err != nil {
		v.err = err
		return nil, err
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && host.FS.IsDir(line) {
			v.paths = append(v.paths, line)
		}
	}
	return v.paths, nil
}

// Returns the vswhere.exe location, or "" if ProgramFiles(x86) is unset.
func vswherePath(host *Host) string {
	pf, ok := host.Env.Lookup("ProgramFiles(x86)")
	if !ok || pf == "" {
		return ""
	}
	return hostos.Join(hostos.Windows, pf, `Microsoft Visual Studio\Installer\vswhere.exe`)
}

// VSInstallProbe finds a Visual Studio 2017+ installation through vswhere.
//
// A candidate matches when it contains the MSVC version marker file and its
// path sits under the "Microsoft Visual Studio\<Version>\" directory.
type VSInstallProbe struct {
	Version   string // Product year, e.g. "2019".
	instances *vsInstances
}

// Name returns VS<Version>.
func (p *VSInstallProbe) Name() Name {
	return Name("VS" + p.Version)
}

// Available reports whether vswhere.exe is installed.
func (p *VSInstallProbe) Available(ctx context.Context, host *Host) bool {
	path := vswherePath(host)
	return path != "" && host.FS.Exists(path)
}

// Resolve returns the first candidate installation for this version.
func (p *VSInstallProbe) Resolve(ctx context.Context, host *Host) (Descriptor, error) {
	if p.instances == nil {
		p.instances = &vsInstances{}
	}
	candidates, err := p.instances.list(ctx, host)
	if err != nil {
		return Descriptor{}, err
	}

	versionDir := `\Microsoft Visual Studio\` + p.Version + `\`
	for _, candidate := range candidates {
		marker := hostos.Join(hostos.Windows, candidate, vcVersionMarker)
		if !host.FS.Exists(marker) || !strings.Contains(candidate, versionDir) {
			continue
		}

		data, err := host.FS.ReadFile(marker)
		if err != nil {
			return Descriptor{}, err
		}
		version := strings.TrimSpace(string(data))

		return Descriptor{
			Name:        p.Name(),
			Version:     version,
			InstallPath: hostos.Join(hostos.Windows, candidate, `VC\Tools\MSVC`, version) + `\`,
			PrefixVar:   "VS" + p.Version + "_PREFIX",
		}, nil
	}

	return Descriptor{}, ErrNoMatch
}

// VSLegacyProbe finds Visual Studio 2013/2015 through its COMNTOOLS
// environment variable.
//
// The install path is two levels above the variable's value. The version is
// taken from the path segment named "Microsoft Visual Studio <ver>". When no
// segment matches, the product year is kept as the version and a warning is
// logged.
type VSLegacyProbe struct {
	Version string // Product year, e.g. "2015".
	EnvVar  string // Variable pointing at Common7\Tools, e.g. "VS140COMNTOOLS".
}

// Name returns VS<Version>x86.
func (p *VSLegacyProbe) Name() Name {
	return Name("VS" + p.Version + "x86")
}

// Available reports whether the COMNTOOLS variable is set.
func (p *VSLegacyProbe) Available(ctx context.Context, host *Host) bool {
	_, ok := host.Env.Lookup(p.EnvVar)
	return ok
}

// Resolve derives the installation from the COMNTOOLS variable.
func (p *VSLegacyProbe) Resolve(ctx context.Context, host *Host) (Descriptor, error) {
	tools, ok := host.Env.Lookup(p.EnvVar)
	if !ok {
		return Descriptor{}, ErrNoMatch
	}

	version, found := legacyVersion(tools)
	if !found {
		slog.Warn("no version segment in legacy toolchain path, using product year",
			"var", p.EnvVar,
			"path", tools,
			"version", p.Version,
		)
		version = p.Version
	}

	return Descriptor{
		Name:        p.Name(),
		Version:     version,
		InstallPath: hostos.Join(hostos.Windows, tools, `..\..\`),
		PrefixVar:   "VS" + p.Version + "_PREFIX",
	}, nil
}

// Extracts the version from a "Microsoft Visual Studio <ver>" path segment.
// The last matching segment wins.
func legacyVersion(path string) (string, bool) {
	version, found := "", false
	for _, part := range strings.Split(path, `\`) {
		if strings.HasPrefix(part, legacyVersionSegment) {
			version, found = part[len(legacyVersionSegment):], true
		}
	}
	return version, found
}
