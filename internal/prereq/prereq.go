// Package prereq verifies the external tools a payload build depends on:
// the Python interpreter used by the build engine, OpenSSL, NASM and Git.
//
// Each check resolves the executable from its configuration variable, runs
// the tool's version query through a [runner.Commander] and prints a
// "Using <cmd>, Version <version>" line. Missing tools fail with
// failure.ToolNotFound; an interpreter that is too old fails with
// failure.UnsupportedVersion.
package prereq

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/pldbuild/internal/envctx"
	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/hostos"
	"github.com/roach88/pldbuild/internal/runner"
)

// Tool names a prerequisite.
type Tool string

// Checked tools.
const (
	Interpreter Tool = "python"
	OpenSSL     Tool = "openssl"
	NASM        Tool = "nasm"
	Git         Tool = "git"
)

// Minimum interpreter version. Both components are checked independently.
const (
	MinInterpreterMajor = 3
	MinInterpreterMinor = 6
)

// Windows install locations used when the variables are unset.
const (
	DefaultWindowsOpenSSLPath = `C:\Openssl\`
	DefaultWindowsOpenSSLConf = `C:\Openssl\openssl.cfg`
)

// Statement run by the interpreter to report its version.
const interpreterVersionScript = "import sys; import platform; print(platform.python_version())"

// Result describes one verified tool.
type Result struct {
	Tool             Tool   `json:"tool"`
	Path             string `json:"path"`
	Version          string `json:"version"`
	SatisfiesMinimum bool   `json:"satisfies_minimum"`
}

// Checker runs the prerequisite checks against a host.
type Checker struct {
	OS       string                             // GOOS of the host.
	Env      *envctx.Builder                    // Read for tool locations; OpenSSL defaults are written back.
	Cmd      runner.Commander                   // Runs version queries.
	LookPath func(file string) (string, error) // Resolves absolute paths for display on POSIX. Nil skips.
	Exists   func(path string) bool             // File existence check. Nil uses os.Stat.
	Out      io.Writer                          // Receives "Using ..." lines. Nil discards.
}

// CheckAll verifies OpenSSL, NASM and Git in that order and stops at the
// first failure. The interpreter is checked separately with
// [Checker.CheckInterpreter] because its result seeds PYTHON_COMMAND.
func (c *Checker) CheckAll(ctx context.Context) ([]Result, error) {
	checks := []func(context.Context) (Result, error){
		c.CheckOpenSSL,
		c.CheckNASM,
		c.CheckGit,
	}

	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		r, err := check(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// CheckInterpreter verifies the Python interpreter named by PYTHON_COMMAND,
// or the host default when unset, is at least 3.6.
func (c *Checker) CheckInterpreter(ctx context.Context) (Result, error) {
	cmd := InterpreterCommand(c.OS, c.Env.Get("PYTHON_COMMAND"))

	out, err := c.Cmd.Output(ctx, cmd, "-c", interpreterVersionScript)
	if err != nil {
		return Result{}, failure.Wrap(failure.ToolNotFound, string(Interpreter),
			fmt.Sprintf("Python interpreter %q not available. Please install Python %d.%d or above",
				cmd, MinInterpreterMajor, MinInterpreterMinor), err)
	}

	version := strings.TrimSpace(out)
	if !MeetsInterpreterMinimum(version) {
		return Result{}, failure.New(failure.UnsupportedVersion, string(Interpreter),
			fmt.Sprintf("Python version %s is not supported any more. Please install and use Python %d.%d or above to launch the build",
				version, MinInterpreterMajor, MinInterpreterMinor))
	}

	return c.report(Interpreter, cmd, version), nil
}

// CheckOpenSSL verifies <OPENSSL_PATH>/openssl. On Windows OPENSSL_PATH and
// OPENSSL_CONF receive their default locations first.
func (c *Checker) CheckOpenSSL(ctx context.Context) (Result, error) {
	if c.OS == hostos.Windows {
		c.Env.SetDefault("OPENSSL_PATH", DefaultWindowsOpenSSLPath)
		if _, ok := c.Env.Lookup("OPENSSL_CONF"); !ok && c.exists(DefaultWindowsOpenSSLConf) {
			c.Env.Set("OPENSSL_CONF", DefaultWindowsOpenSSLConf)
		}
	}

	cmd := hostos.Join(c.OS, c.Env.Get("OPENSSL_PATH"), "openssl")
	return c.check(ctx, OpenSSL, cmd, []string{"version"},
		"OpenSSL not available. Please set OPENSSL_PATH")
}

// CheckNASM verifies <NASM_PREFIX>/nasm.
func (c *Checker) CheckNASM(ctx context.Context) (Result, error) {
	cmd := hostos.Join(c.OS, c.Env.Get("NASM_PREFIX"), "nasm")
	return c.check(ctx, NASM, cmd, []string{"-v"},
		"NASM not available. Please set NASM_PREFIX")
}

// CheckGit verifies git is on PATH.
func (c *Checker) CheckGit(ctx context.Context) (Result, error) {
	return c.check(ctx, Git, "git", []string{"--version"},
		"Git not found. Please install Git or check if Git is in the PATH environment variable")
}

// Runs a version query and maps any failure to ToolNotFound.
func (c *Checker) check(ctx context.Context, tool Tool, cmd string, args []string, remedy string) (Result, error) {
	out, err := c.Cmd.Output(ctx, append([]string{cmd}, args...)...)
	if err != nil {
		return Result{}, failure.Wrap(failure.ToolNotFound, string(tool), remedy, err)
	}
	return c.report(tool, cmd, strings.TrimSpace(out)), nil
}

// Builds the result and prints the "Using" line.
func (c *Checker) report(tool Tool, cmd, version string) Result {
	path := cmd
	if hostos.IsPOSIX(c.OS) && c.LookPath != nil {
		if abs, err := c.LookPath(cmd); err == nil {
			path = abs
		}
	}

	if c.Out != nil {
		fmt.Fprintf(c.Out, "Using %s, Version %s\n", path, version)
	}

	return Result{Tool: tool, Path: path, Version: version, SatisfiesMinimum: true}
}

func (c *Checker) exists(path string) bool {
	if c.Exists != nil {
		return c.Exists(path)
	}
	_, err := os.Stat(path)
	return err == nil
}

// InterpreterCommand returns the interpreter to run. A configured command has
// its surrounding quotes removed; otherwise the host default is used.
func InterpreterCommand(goos, configured string) string {
	if cmd := strings.Trim(strings.TrimSpace(configured), `"`); cmd != "" {
		return cmd
	}
	if goos == hostos.Windows {
		return "python"
	}
	return "python3"
}

// ParseInterpreterVersion returns the major and minor components of a dotted
// version such as "3.10.2". Trailing qualifiers on the minor component, as
// in "3.13rc1", are ignored.
func ParseInterpreterVersion(version string) (major, minor int, err error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("version %q has no minor component", version)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("version %q: major: %w", version, err)
	}

	minor, err = strconv.Atoi(leadingDigits(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("version %q: minor: %w", version, err)
	}

	return major, minor, nil
}

// MeetsInterpreterMinimum reports whether version has major >= 3 and
// minor >= 6, each compared as an integer. Unparseable versions fail.
func MeetsInterpreterMinimum(version string) bool {
	major, minor, err := ParseInterpreterVersion(version)
	if err != nil {
		return false
	}
	return major >= MinInterpreterMajor && minor >= MinInterpreterMinor
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
