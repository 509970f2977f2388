package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/envctx"
	"github.com/roach88/pldbuild/internal/toolchain"
)

// EnvOptions holds flags for the env command.
type EnvOptions struct {
	All bool
}

// EnvResult is the JSON payload of the env command.
type EnvResult struct {
	Toolchain toolchain.Descriptor `json:"toolchain"`
	Variables map[string]string    `json:"variables"`
}

// NewEnvCommand creates the env command.
func NewEnvCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnvOptions{}

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the prepared build environment",
		Long: `Run the host checks and toolchain resolution, then print the
variables a build would run with. Nothing is written to the workspace.

By default only variables that differ from the current environment are
shown.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "print every variable, not only the changed ones")

	return cmd
}

func runEnv(ctx context.Context, rootOpts *RootOptions, opts *EnvOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	source, err := rootOpts.sourceDir()
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	// Version lines go to stderr so stdout stays sourceable.
	res, err := rootOpts.prepare(ctx, source, formatter.GetErrWriter(), true)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	vars := changedVars(envctx.NewHostBuilder(rootOpts.hostOS(), rootOpts.hostEnviron()).Context(), res.Env, opts.All)

	return formatter.Emit(EnvResult{Toolchain: res.Toolchain, Variables: vars}, func(w io.Writer) {
		for _, key := range res.Env.Keys() {
			if v, ok := vars[key]; ok {
				fmt.Fprintf(w, "%s=%s\n", key, v)
			}
		}
	})
}

// changedVars returns the variables of prepared that are new or differ
// from base. With all set, every variable is returned.
func changedVars(base, prepared *envctx.Context, all bool) map[string]string {
	vars := make(map[string]string)
	for _, key := range prepared.Keys() {
		v := prepared.Get(key)
		if old, ok := base.Lookup(key); all || !ok || old != v {
			vars[key] = v
		}
	}
	return vars
}
