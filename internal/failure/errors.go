package failure

import (
	"errors"
	"fmt"
)

// Code categorizes bootstrap failures.
type Code string

const (
	// ToolNotFound indicates a required executable is missing or unreachable.
	ToolNotFound Code = "TOOL_NOT_FOUND"

	// UnsupportedVersion indicates a tool is below the minimum required version.
	UnsupportedVersion Code = "UNSUPPORTED_VERSION"

	// ToolchainNotFound indicates no compatible compiler toolchain was located.
	ToolchainNotFound Code = "TOOLCHAIN_NOT_FOUND"

	// UnsupportedPlatform indicates the host operating system is not supported.
	UnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"

	// ProcessFailed indicates an external command exited non-zero.
	ProcessFailed Code = "PROCESS_FAILED"
)

// Error is a terminal bootstrap failure.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Component names what failed (a tool, a toolchain probe, a command line).
	Component string

	// Message is the human-readable diagnostic, including any remediation.
	Message string

	// ExitCode is the child exit status for ProcessFailed, zero otherwise.
	ExitCode int

	// Err is the underlying error, if any.
	Err error

	// Echoed marks a Component the user has already seen, such as a
	// command line printed when the command failed.
	Echoed bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Component != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Component)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Describe renders err without its failure codes, for display next to a
// code shown separately.
func Describe(err error) string {
	return describe(err, false)
}

// Brief is Describe without components the user has already seen.
func Brief(err error) string {
	return describe(err, true)
}

func describe(err error, skipEchoed bool) string {
	fe, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	msg := fe.Message
	if fe.Component != "" && !(skipEchoed && fe.Echoed) {
		msg += " (" + fe.Component + ")"
	}
	if fe.Err != nil {
		msg += ": " + describe(fe.Err, skipEchoed)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(code Code, component, message string) *Error {
	return &Error{Code: code, Component: component, Message: message}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code Code, component, message string, err error) *Error {
	return &Error{Code: code, Component: component, Message: message, Err: err}
}

// CodeOf returns the failure code carried by err, or "" if err is not a
// failure. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// ExitCodeOf returns the first non-zero child exit status in err's chain,
// or 0 if there is none.
func ExitCodeOf(err error) int {
	for err != nil {
		if fe, ok := err.(*Error); ok && fe.ExitCode != 0 {
			return fe.ExitCode
		}
		err = errors.Unwrap(err)
	}
	return 0
}

// Is reports whether err carries the given failure code.
func Is(err error, code Code) bool {
	return code != "" && CodeOf(err) == code
}

// IsToolNotFound reports whether err is a ToolNotFound failure.
func IsToolNotFound(err error) bool { return Is(err, ToolNotFound) }

// IsUnsupportedVersion reports whether err is an UnsupportedVersion failure.
func IsUnsupportedVersion(err error) bool { return Is(err, UnsupportedVersion) }

// IsToolchainNotFound reports whether err is a ToolchainNotFound failure.
func IsToolchainNotFound(err error) bool { return Is(err, ToolchainNotFound) }

// IsUnsupportedPlatform reports whether err is an UnsupportedPlatform failure.
func IsUnsupportedPlatform(err error) bool { return Is(err, UnsupportedPlatform) }

// IsProcessFailed reports whether err is a ProcessFailed failure.
func IsProcessFailed(err error) bool { return Is(err, ProcessFailed) }
