package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pldbuild/internal/upld"
)

// HeaderInfo is the decoded form of an info header.
type HeaderInfo struct {
	Path         string `json:"path"`
	Identifier   string `json:"identifier"`
	HeaderLength uint32 `json:"header_length"`
	SpecRevision uint16 `json:"spec_revision"`
	Revision     string `json:"revision"`
	Attribute    uint32 `json:"attribute"`
	Capability   uint32 `json:"capability"`
	ProducerID   string `json:"producer_id"`
	ImageID      string `json:"image_id"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a universal payload info header",
		Long: `Decode the info header from a raw header file or from the .upld_info
section of a built payload ELF.`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	hdr, err := upld.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	info := HeaderInfo{
		Path:         path,
		Identifier:   string(hdr.Identifier[:]),
		HeaderLength: hdr.HeaderLength,
		SpecRevision: hdr.SpecRevision,
		Revision:     fmt.Sprintf("0x%08x", hdr.Revision),
		Attribute:    hdr.Attribute,
		Capability:   hdr.Capability,
		ProducerID:   hdr.ProducerName(),
		ImageID:      hdr.ImageName(),
	}

	return formatter.Emit(info, func(w io.Writer) {
		fmt.Fprintln(w, Heading(path))
		fmt.Fprintf(w, "Producer %s, Image %s, Revision %s\n", info.ProducerID, info.ImageID, info.Revision)
		_ = hdr.Dump(w)
	})
}
