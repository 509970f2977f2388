// Package failure defines the terminal error taxonomy shared by the
// environment bootstrap.
//
// Every condition that stops a build before the downstream engine runs is
// reported as an [*Error] carrying one of five codes:
//
//   - TOOL_NOT_FOUND: a required executable is missing or unreachable
//   - UNSUPPORTED_VERSION: a tool is present but older than required
//   - TOOLCHAIN_NOT_FOUND: no compatible compiler toolchain on the host
//   - UNSUPPORTED_PLATFORM: the host OS is not windows, darwin or POSIX
//   - PROCESS_FAILED: an external command exited non-zero
//
// None of them is retried. The CLI maps any [*Error] to a non-zero exit
// status after printing its diagnostic.
package failure
