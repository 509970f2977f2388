// Package hostos classifies host operating systems and builds paths in the
// host's own syntax, independent of the OS the binary runs on.
//
// The bootstrap computes Windows paths while running tests on Linux, so path
// construction is keyed by a GOOS string rather than by the build target.
package hostos

import (
	"path"
	"strings"
)

// Operating systems with dedicated toolchain handling.
const (
	Windows = "windows"
	Darwin  = "darwin"
)

// GOOS values treated as generic POSIX hosts.
var posix = map[string]bool{
	"linux":     true,
	"freebsd":   true,
	"openbsd":   true,
	"netbsd":    true,
	"dragonfly": true,
	"solaris":   true,
	"illumos":   true,
	"aix":       true,
	"android":   true,
	Darwin:      true,
}

// IsPOSIX reports whether goos is a POSIX host, darwin included.
func IsPOSIX(goos string) bool {
	return posix[goos]
}

// Supported reports whether goos is windows, darwin or another POSIX host.
func Supported(goos string) bool {
	return goos == Windows || IsPOSIX(goos)
}

// ListSeparator returns the PATH list separator for goos.
func ListSeparator(goos string) string {
	if goos == Windows {
		return ";"
	}
	return ":"
}

// Executable returns name with the host's executable suffix.
func Executable(goos, name string) string {
	if goos == Windows && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// Join joins path elements with the separator of goos. Empty elements are
// skipped. Windows paths are joined textually with backslashes and are not
// cleaned, so "..\.." segments survive as written.
func Join(goos string, elem ...string) string {
	if goos != Windows {
		return path.Join(elem...)
	}

	var b strings.Builder
	for _, e := range elem {
		if e == "" {
			continue
		}
		if b.Len() > 0 {
			s := b.String()
			if !strings.HasSuffix(s, `\`) && !strings.HasSuffix(s, "/") {
				b.WriteByte('\\')
			}
			e = strings.TrimLeft(e, `\/`)
		}
		b.WriteString(e)
	}
	return b.String()
}
