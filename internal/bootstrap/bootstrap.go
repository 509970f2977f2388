// Package bootstrap prepares the build environment before the engine runs.
//
// Prepare verifies the interpreter, resolves the compiler toolchain, fills in
// the host defaults the engine expects, checks the remaining tools and makes
// sure the workspace has its Conf files. The result is a frozen
// envctx.Context that every later step passes to child processes.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"

	"github.com/roach88/pldbuild/internal/envctx"
	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/hostos"
	"github.com/roach88/pldbuild/internal/prereq"
	"github.com/roach88/pldbuild/internal/runner"
	"github.com/roach88/pldbuild/internal/toolchain"
	"github.com/roach88/pldbuild/internal/workspace"
)

// Windows defaults applied when the variables are unset.
const (
	DefaultNASMPrefix   = `C:\Nasm\`
	DefaultOpenSSLPath  = `C:\Openssl\`
	DefaultIASLPrefix   = `C:\ASL\`
	DefaultWinSDKRCPath = `C:\Program Files (x86)\Microsoft SDKs\Windows\v7.1A\Bin\`
)

// DefaultKeyDir is the signing key directory used when SBL_KEY_DIR is unset.
const DefaultKeyDir = "../SblKeys/"

// Options configures Prepare. Zero-valued fields fall back to the running
// process: runtime host, os.Environ, a real runner and filesystem.
type Options struct {
	OS       string                             // Host GOOS.
	Source   string                             // Source tree root containing BaseTools.
	Environ  []string                           // Inherited KEY=VALUE environment.
	Resolver *toolchain.Resolver                // Toolchain probes. Nil uses toolchain.NewResolver.
	Cmd      runner.Commander                   // Runs version queries.
	FS       toolchain.FileSystem               // Filesystem queries for probes.
	LookPath func(file string) (string, error) // Executable lookup.
	Out      io.Writer                          // Receives "Using ..." lines. Nil discards.
	SkipConf bool                               // Do not create the workspace Conf files.
}

// Result is the prepared environment.
type Result struct {
	Env        *envctx.Context
	Toolchain  toolchain.Descriptor
	Tools      []prereq.Result
	ConfCopied []string
}

// Prepare builds the environment for a payload build.
func Prepare(ctx context.Context, opts Options) (*Result, error) {
	opts = withDefaults(opts)
	goos := opts.OS

	if !hostos.Supported(goos) {
		return nil, failure.New(failure.UnsupportedPlatform, goos, "unsupported operating system")
	}

	env := envctx.NewHostBuilder(goos, opts.Environ)
	checker := &prereq.Checker{
		OS:       goos,
		Env:      env,
		Cmd:      opts.Cmd,
		LookPath: opts.LookPath,
		Exists:   opts.FS.Exists,
		Out:      opts.Out,
	}

	interp, err := checker.CheckInterpreter(ctx)
	if err != nil {
		return nil, err
	}
	env.Set("PYTHON_COMMAND", `"`+interp.Path+`"`)

	addToolPaths(env, goos, opts.Source)

	host := &toolchain.Host{
		OS:       goos,
		Env:      env,
		FS:       opts.FS,
		Cmd:      opts.Cmd,
		LookPath: opts.LookPath,
	}
	tc, err := opts.Resolver.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	tc.Export(env)

	if goos == hostos.Windows {
		env.SetDefault("NASM_PREFIX", DefaultNASMPrefix)
		env.SetDefault("OPENSSL_PATH", DefaultOpenSSLPath)
		env.SetDefault("IASL_PREFIX", DefaultIASLPrefix)
	}
	env.SetDefault("SBL_KEY_DIR", DefaultKeyDir)

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Using %s, Version %s\n", tc.Name, tc.Version)
	}

	tools, err := checker.CheckAll(ctx)
	if err != nil {
		return nil, err
	}

	baseTools := hostos.Join(goos, opts.Source, "BaseTools")
	env.Set("SBL_SOURCE", opts.Source)
	env.Set("WINSDK_PATH_FOR_RC_EXE", DefaultWinSDKRCPath)
	env.Set("EDK_TOOLS_PATH", baseTools)
	env.Set("BASE_TOOLS_PATH", baseTools)
	env.SetDefault("WORKSPACE", opts.Source)
	env.Set("CONF_PATH", hostos.Join(goos, env.Get("WORKSPACE"), workspace.ConfDir))
	env.Set("TOOL_CHAIN", string(tc.Name))

	var copied []string
	if !opts.SkipConf {
		copied, err = workspace.EnsureConf(env.Get("WORKSPACE"), opts.Source)
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("environment prepared",
		"toolchain", tc.Name,
		"workspace", env.Get("WORKSPACE"),
		"conf_copied", len(copied),
	)

	return &Result{
		Env:        env.Context(),
		Toolchain:  tc,
		Tools:      append([]prereq.Result{interp}, tools...),
		ConfCopied: copied,
	}, nil
}

// Appends the BaseTools wrapper directories to PATH.
func addToolPaths(env *envctx.Builder, goos, source string) {
	sep := hostos.ListSeparator(goos)
	if goos == hostos.Windows {
		env.Append("PATH", hostos.Join(goos, source, `BaseTools\Bin\Win32`), sep)
		env.Append("PATH", hostos.Join(goos, source, `BaseTools\BinWrappers\WindowsLike`), sep)
		env.Set("PYTHONPATH", hostos.Join(goos, source, `BaseTools\Source\Python`))
		return
	}
	env.Append("PATH", hostos.Join(goos, source, "BaseTools/BinWrappers/PosixLike"), sep)
}

func withDefaults(opts Options) Options {
	if opts.OS == "" {
		opts.OS = runtime.GOOS
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}
	if opts.Resolver == nil {
		opts.Resolver = toolchain.NewResolver()
	}
	if opts.Cmd == nil {
		opts.Cmd = runner.New()
	}
	if opts.FS == nil {
		opts.FS = toolchain.OSFileSystem{}
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Source == "" {
		opts.Source, _ = os.Getwd()
	}
	return opts
}
