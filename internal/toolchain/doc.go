// Package toolchain locates the compiler toolchain used by the downstream
// build engine.
//
// Resolution is an ordered list of independent [Probe] strategies per host
// operating system. The [Resolver] asks each probe in priority order whether
// it can run on the host and returns the first successful [Descriptor]:
//
//	windows: VS2019, VS2017 (via vswhere), VS2015x86, VS2013x86 (legacy env vars)
//	darwin:  XCODE5 (clang)
//	POSIX:   GCC5 or GCC49 (gcc major version > 4 selects GCC5)
//
// The first match in priority order wins, not the best overall match.
// Adding a toolchain version means adding a probe to a list.
//
// Every outcome of [Resolver.Resolve] is a descriptor named from the fixed
// set returned by [Names], a TOOLCHAIN_NOT_FOUND failure, or an
// UNSUPPORTED_PLATFORM failure for hosts outside windows/darwin/POSIX.
//
// Host access (environment, filesystem, command execution) goes through
// [Host] so probes for one OS can be exercised on another.
package toolchain
