package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/artifact"
	"github.com/roach88/pldbuild/internal/history"
	"github.com/roach88/pldbuild/internal/publish"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	Endpoint string
	Bucket   string
	Prefix   string
	Secure   bool
	RunID    string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{}

	cmd := &cobra.Command{
		Use:   "publish [file...]",
		Short: "Upload payload artifacts to object storage",
		Long: `Upload files to an S3-compatible bucket under
<prefix>/<algorithm>/<digest>/<name>.

Endpoint, bucket and prefix come from the profile's publish section, the
PLDBUILD_S3_* environment variables and the flags, in increasing order of
precedence. Credentials are read from PLDBUILD_S3_ACCESS_KEY and
PLDBUILD_S3_SECRET_KEY only.

With --run, the uploaded locations are recorded against that build, and
the run's artifacts are published when no files are given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "object storage endpoint as host:port")
	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "target bucket")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "object key prefix")
	cmd.Flags().BoolVar(&opts.Secure, "secure", false, "use TLS")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "build run the artifacts belong to")

	return cmd
}

func runPublish(ctx context.Context, rootOpts *RootOptions, opts *PublishOptions, files []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	if len(files) == 0 && opts.RunID == "" {
		return formatter.Fail(ExitCommandError, errors.New("no files to publish: give files or --run"))
	}

	cfg, err := publishConfig(cmd, rootOpts, opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	var store *history.Store
	if opts.RunID != "" {
		store, err = rootOpts.openHistory()
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		defer store.Close()

		if len(files) == 0 {
			files, err = runArtifactPaths(ctx, store, opts.RunID)
			if err != nil {
				return formatter.Fail(ExitCommandError, err)
			}
		}
	}

	artifacts, err := artifact.DescribeAll(files)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	pub, err := rootOpts.publisher(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	results, err := pub.PublishAll(ctx, artifacts)
	if store != nil {
		recordLocations(ctx, store, opts.RunID, results)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	return formatter.Emit(results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "Published %s to %s\n", r.Artifact.Path, r.Location)
		}
	})
}

// publishConfig layers profile, environment and flags.
func publishConfig(cmd *cobra.Command, rootOpts *RootOptions, opts *PublishOptions) (publish.Config, error) {
	prof, err := rootOpts.loadProfile()
	if err != nil {
		return publish.Config{}, err
	}

	var base publish.Config
	if p := prof.Publish; p != nil {
		base = publish.Config{Endpoint: p.Endpoint, Bucket: p.Bucket, Prefix: p.Prefix, Secure: p.Secure}
	}

	cfg, err := publish.OverlayEnv(rootOpts.lookupEnv, base)
	if err != nil {
		return publish.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = opts.Endpoint
	}
	if flags.Changed("bucket") {
		cfg.Bucket = opts.Bucket
	}
	if flags.Changed("prefix") {
		cfg.Prefix = opts.Prefix
	}
	if flags.Changed("secure") {
		cfg.Secure = opts.Secure
	}

	if err := cfg.Validate(); err != nil {
		return publish.Config{}, err
	}
	return cfg, nil
}

func (o *RootOptions) publisher(cfg publish.Config) (*publish.Publisher, error) {
	if o.objects != nil {
		return publish.NewWithStore(o.objects, cfg), nil
	}
	return publish.New(cfg)
}

// runArtifactPaths returns the paths recorded for a run.
func runArtifactPaths(ctx context.Context, store *history.Store, runID string) ([]string, error) {
	recorded, err := store.Artifacts(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return nil, fmt.Errorf("run %s has no artifacts", runID)
	}

	paths := make([]string, 0, len(recorded))
	for _, a := range recorded {
		paths = append(paths, a.Path)
	}
	return paths, nil
}

// recordLocations stores where each uploaded artifact went.
func recordLocations(ctx context.Context, store *history.Store, runID string, results []publish.Result) {
	for _, r := range results {
		err := store.RecordArtifact(ctx, history.Artifact{
			RunID:    runID,
			Path:     r.Artifact.Path,
			Digest:   r.Artifact.Digest.String(),
			Size:     r.Artifact.Size,
			Location: r.Location,
		})
		if err != nil {
			slog.Warn("failed to record published location", "run", runID, "path", r.Artifact.Path, "error", err)
		}
	}
}
