package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/artifact"
	"github.com/roach88/pldbuild/internal/build"
	"github.com/roach88/pldbuild/internal/failure"
	"github.com/roach88/pldbuild/internal/history"
	"github.com/roach88/pldbuild/internal/profile"
	"github.com/roach88/pldbuild/internal/toolchain"
	"github.com/roach88/pldbuild/internal/workspace"
)

// Payload outputs collected from Build/ after a successful build.
var artifactPatterns = []string{"*.elf", "*.fd"}

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	Arch      string
	Release   bool
	Defines   []string
	Jobs      int
	NoHistory bool
}

// BuildResult is the JSON payload of a successful build.
type BuildResult struct {
	RunID     string               `json:"run_id,omitempty"`
	Toolchain toolchain.Descriptor `json:"toolchain"`
	Target    string               `json:"target"`
	Arch      build.Arch           `json:"arch"`
	Artifacts []artifact.Artifact  `json:"artifacts"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the universal payload",
		Long: `Verify the host tools, resolve a compiler toolchain, bootstrap the
workspace Conf files and run the EDK II build engine.

BaseTools are rebuilt first when their executables are missing. Profile
values from pldbuild.yaml apply unless the matching flag is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Arch, "arch", "a", string(build.DefaultArch), "target architecture (ia32|x64|mix)")
	cmd.Flags().BoolVarP(&opts.Release, "release", "r", false, "release build (default: debug)")
	cmd.Flags().StringArrayVarP(&opts.Defines, "define", "D", nil, "macro passed to the build engine as NAME[=VALUE]")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "n", 0, "parallel build jobs (default: CPU count)")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "do not record the run in the build history")

	return cmd
}

func runBuild(ctx context.Context, rootOpts *RootOptions, opts *BuildOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	source, err := rootOpts.sourceDir()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	prof, err := rootOpts.loadProfile()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	applyProfile(cmd, opts, prof)

	arch, err := build.ParseArch(opts.Arch)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	buildOpts := build.Options{
		OS:      rootOpts.hostOS(),
		Arch:    arch,
		Release: opts.Release,
		Defines: opts.Defines,
		Jobs:    opts.Jobs,
	}

	rec := newRecorder(ctx, rootOpts, opts.NoHistory, history.Run{
		Command:   "build",
		Args:      buildArgs(opts),
		Target:    buildOpts.Target(),
		Arch:      string(arch),
		Workspace: source,
	})
	defer rec.close()

	progress := formatter.Progress()
	res, err := rootOpts.prepare(ctx, source, progress, false)
	if err != nil {
		rec.finish(ExitFailure, err)
		return formatter.Fail(ExitFailure, err)
	}
	for _, copied := range res.ConfCopied {
		formatter.VerboseLog("Copied %s", copied)
	}
	rec.toolchain(res.Toolchain)

	buildOpts.ToolChain = string(res.Toolchain.Name)
	orch := &build.Orchestrator{
		Exec:   rootOpts.buildExecutor(res.Env.Environ(), source, progress, formatter.GetErrWriter()),
		OS:     buildOpts.OS,
		Source: source,
		Out:    progress,
	}
	if err := orch.Build(ctx, buildOpts); err != nil {
		rec.finish(ExitFailure, err)
		return formatter.Fail(ExitFailure, err)
	}

	artifacts, err := collectArtifacts(res.Env.Get("WORKSPACE"))
	if err != nil {
		rec.finish(ExitFailure, err)
		return formatter.Fail(ExitFailure, err)
	}
	for _, a := range artifacts {
		rec.artifact(a)
	}
	rec.finish(ExitSuccess, nil)

	result := BuildResult{
		RunID:     rec.id(),
		Toolchain: res.Toolchain,
		Target:    buildOpts.Target(),
		Arch:      arch,
		Artifacts: artifacts,
	}
	return formatter.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Build %s done with %s\n", result.Target, result.Toolchain.Name)
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %s  %s\n", a.Digest, a.Path)
		}
	})
}

// applyProfile fills options the user did not set on the command line.
func applyProfile(cmd *cobra.Command, opts *BuildOptions, prof *profile.Profile) {
	flags := cmd.Flags()
	if prof.Arch != "" && !flags.Changed("arch") {
		opts.Arch = prof.Arch
	}
	if prof.Release && !flags.Changed("release") {
		opts.Release = true
	}
	if len(prof.Defines) > 0 && !flags.Changed("define") {
		opts.Defines = append([]string(nil), prof.Defines...)
	}
}

func buildArgs(opts *BuildOptions) []string {
	args := []string{"--arch", opts.Arch}
	if opts.Release {
		args = append(args, "--release")
	}
	for _, d := range opts.Defines {
		args = append(args, "-D", d)
	}
	if opts.Jobs > 0 {
		args = append(args, "--jobs", fmt.Sprint(opts.Jobs))
	}
	return args
}

// collectArtifacts describes the payload files under <workspace>/Build.
func collectArtifacts(ws string) ([]artifact.Artifact, error) {
	paths, err := artifact.Find(filepath.Join(ws, workspace.BuildDir), artifactPatterns...)
	if errors.Is(err, fs.ErrNotExist) {
		return []artifact.Artifact{}, nil
	}
	if err != nil {
		return nil, err
	}
	return artifact.DescribeAll(paths)
}

// recorder writes a run to the build history. History is best effort: a
// store that cannot be opened or written is logged and ignored.
type recorder struct {
	ctx   context.Context
	store *history.Store
	run   history.Run
}

func newRecorder(ctx context.Context, opts *RootOptions, disabled bool, run history.Run) *recorder {
	rec := &recorder{ctx: ctx}
	if disabled {
		return rec
	}

	store, err := opts.openHistory()
	if err != nil {
		slog.Warn("build history unavailable", "error", err)
		return rec
	}
	run, err = store.RecordRun(ctx, run)
	if err != nil {
		slog.Warn("failed to record run", "error", err)
		store.Close()
		return rec
	}

	rec.store, rec.run = store, run
	return rec
}

func (r *recorder) id() string {
	return r.run.ID
}

func (r *recorder) toolchain(tc toolchain.Descriptor) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateToolchain(r.ctx, r.run.ID, string(tc.Name), tc.Version); err != nil {
		slog.Warn("failed to record toolchain", "run", r.run.ID, "error", err)
	}
}

func (r *recorder) artifact(a artifact.Artifact) {
	if r.store == nil {
		return
	}
	err := r.store.RecordArtifact(r.ctx, history.Artifact{
		RunID:  r.run.ID,
		Path:   a.Path,
		Digest: a.Digest.String(),
		Size:   a.Size,
	})
	if err != nil {
		slog.Warn("failed to record artifact", "run", r.run.ID, "path", a.Path, "error", err)
	}
}

func (r *recorder) finish(exitCode int, runErr error) {
	if r.store == nil {
		return
	}
	if code := failure.ExitCodeOf(runErr); code != 0 {
		exitCode = code
	}
	if err := r.store.FinishRun(r.ctx, r.run.ID, exitCode, runErr); err != nil {
		slog.Warn("failed to finish run", "run", r.run.ID, "error", err)
	}
}

func (r *recorder) close() {
	if r.store != nil {
		r.store.Close()
	}
}
