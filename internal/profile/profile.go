// Package profile loads the optional pldbuild.yaml build profile.
//
// A profile supplies defaults for the build and publish commands so a
// workspace can pin its architecture, macros and image name. Files are
// decoded strictly (unknown keys are errors) and then validated against an
// embedded CUE schema.
package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the profile looked up in the workspace root.
const FileName = "pldbuild.yaml"

//go:embed schema.cue
var schemaCUE string

// Profile holds build defaults.
type Profile struct {
	Arch      string   `yaml:"arch" json:"arch,omitempty"`
	Release   bool     `yaml:"release" json:"release,omitempty"`
	Defines   []string `yaml:"defines" json:"defines,omitempty"`
	ImageName string   `yaml:"image_name" json:"image_name,omitempty"`
	Publish   *Publish `yaml:"publish" json:"publish,omitempty"`
}

// Publish holds object storage defaults. Credentials are never read from
// the profile.
type Publish struct {
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	Bucket   string `yaml:"bucket" json:"bucket,omitempty"`
	Prefix   string `yaml:"prefix" json:"prefix,omitempty"`
	Secure   bool   `yaml:"secure" json:"secure,omitempty"`
}

// ValidationError lists schema violations.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// Find returns the profile path in workspace, or "" when there is none.
func Find(workspace string) string {
	p := filepath.Join(workspace, FileName)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates profile YAML. Empty input yields an empty
// profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks a profile against the embedded schema.
func Validate(p *Profile) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Profile"))

	value := ctx.Encode(p)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Path: "<input>", Problems: problems(err)}
	}
	return nil
}

// Flattens CUE errors into one message each.
func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
