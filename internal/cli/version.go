package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	undefined  = "(undefined)"
	localBuild = "(local)"
	mainBranch = "main"
)

// Set with -ldflags "-X github.com/roach88/pldbuild/internal/cli.version=..."
var (
	version   = "" // Release version, e.g. "1.2.3"
	stage     = "" // Git branch the release was built from
	gitCommit = "" // Git commit hash
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Stage     string `json:"stage"`
	GitCommit string `json:"git_commit"`
	Arch      string `json:"arch"`
	Local     bool   `json:"local"`
}

// CurrentVersion returns the version variables of this build. A "v"
// prefix on the version is stripped.
func CurrentVersion() VersionInfo {
	info := VersionInfo{
		Version:   undefined,
		Stage:     undefined,
		GitCommit: undefined,
		Arch:      runtime.GOARCH,
	}
	if v := strings.TrimSpace(version); v != "" {
		info.Version = strings.TrimPrefix(strings.ToLower(v), "v")
	}
	if s := strings.TrimSpace(stage); s != "" {
		info.Stage = strings.ToLower(s)
	}
	if c := strings.TrimSpace(gitCommit); c != "" {
		info.GitCommit = c
	}
	info.Local = strings.TrimSpace(version) == "" ||
		strings.TrimSpace(stage) == "" ||
		strings.TrimSpace(gitCommit) == ""
	return info
}

// String formats the version as "<version>[+<stage>] <commit> [<arch>]",
// or "(local)" for builds without version variables.
func (v VersionInfo) String() string {
	if v.Local {
		return localBuild
	}
	s := ""
	if v.Stage != mainBranch {
		s = "+" + v.Stage
	}
	return fmt.Sprintf("%s%s %s [%s]", v.Version, s, v.GitCommit, v.Arch)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := CurrentVersion()
			return newFormatter(rootOpts, cmd).Emit(info, func(w io.Writer) {
				fmt.Fprintln(w, info)
			})
		},
	}

	return cmd
}
