package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/upld"
)

// GenHdrResult describes a written info header.
type GenHdrResult struct {
	Path      string `json:"path"`
	ImageName string `json:"image_name"`
	Size      int    `json:"size"`
}

// NewGenHdrCommand creates the genhdr command.
func NewGenHdrCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genhdr <out-file> [image-name]",
		Short: "Write a universal payload info header",
		Long: `Write the 56-byte universal payload info header to out-file.

The image name is stored as UTF-8 and truncated to 16 bytes. Without a
name argument the profile's image_name is used, then "UEFI". The build
engine runs this while packaging the payload; an existing file is
overwritten.`,
		Args:          rangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runGenHdr(rootOpts, args[0], name, cmd)
		},
	}

	return cmd
}

func runGenHdr(opts *RootOptions, out, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if name == "" {
		prof, err := opts.loadProfile()
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		name = prof.ImageName
	}
	if name == "" {
		name = upld.DefaultImageID
	}

	if err := upld.WriteFile(out, name); err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	hdr := upld.NewInfoHeader(name)
	formatter.VerboseLog("Wrote %s for image %q", out, hdr.ImageName())

	// Text mode stays quiet; the build engine captures our output.
	if opts.Format != "json" {
		return nil
	}
	return formatter.Success(GenHdrResult{Path: out, ImageName: hdr.ImageName(), Size: upld.HeaderSize})
}
