package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/hostos"
)

// Resolver evaluates probes in a fixed priority order per host OS.
type Resolver struct {
	Windows []Probe // Probes for windows hosts.
	Darwin  []Probe // Probes for darwin hosts.
	POSIX   []Probe // Probes for other POSIX hosts.
}

// NewResolver creates a Resolver with the default probe lists. The two
// vswhere-based probes share one installation query.
func NewResolver() *Resolver {
	instances := &vsInstances{}
	return &Resolver{
		Windows: []Probe{
			&VSInstallProbe{Version: "2019", instances: instances},
			&VSInstallProbe{Version: "2017", instances: instances},
			&VSLegacyProbe{Version: "2015", EnvVar: "VS140COMNTOOLS"},
			&VSLegacyProbe{Version: "2013", EnvVar: "VS120COMNTOOLS"},
		},
		Darwin: []Probe{&ClangProbe{}},
		POSIX:  []Probe{&GCCProbe{}},
	}
}

// Probes returns the ordered probe list for goos.
func (r *Resolver) Probes(goos string) ([]Probe, error) {
	switch {
	case goos == hostos.Windows:
		return r.Windows, nil
	case goos == hostos.Darwin:
		return r.Darwin, nil
	case hostos.IsPOSIX(goos):
		return r.POSIX, nil
	}
	return nil, failure.New(failure.UnsupportedPlatform, goos, "unsupported operating system")
}

// Resolve returns the first toolchain found by the host's probes.
func (r *Resolver) Resolve(ctx context.Context, host *Host) (Descriptor, error) {
	probes, err := r.Probes(host.OS)
	if err != nil {
		return Descriptor{}, err
	}

	for _, p := range probes {
		if !p.Available(ctx, host) {
			slog.Debug("toolchain probe unavailable", "probe", p.Name())
			continue
		}

		d, err := p.Resolve(ctx, host)
		if errors.Is(err, ErrNoMatch) {
			slog.Debug("toolchain probe found nothing", "probe", p.Name())
			continue
		}
		if err != nil {
			if failure.IsToolchainNotFound(err) {
				return Descriptor{}, err
			}
			return Descriptor{}, failure.Wrap(failure.ToolchainNotFound, string(p.Name()), "toolchain probe failed", err)
		}
		if !d.Name.Valid() {
			return Descriptor{}, failure.New(failure.ToolchainNotFound, string(d.Name), "probe returned an unknown toolchain")
		}

		slog.Debug("toolchain resolved", "name", d.Name, "version", d.Version, "path", d.InstallPath)
		return d, nil
	}

	return Descriptor{}, failure.New(failure.ToolchainNotFound, host.OS, notFoundMessage(host.OS))
}

func notFoundMessage(goos string) string {
	if goos == hostos.Windows {
		return "could not find supported Visual Studio version"
	}
	return fmt.Sprintf("could not find a supported compiler on %s", goos)
}
