// Package artifact describes build outputs by content digest.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"
)

// Artifact is a file identified by its content.
type Artifact struct {
	Path   string        `json:"path"`
	Digest digest.Digest `json:"digest"`
	Size   int64         `json:"size"`
}

// Name returns the file's base name.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Describe computes the sha256 digest and size of a regular file.
func Describe(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("describe artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Artifact{}, fmt.Errorf("describe artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("describe artifact: %s is not a regular file", path)
	}

	digester := digest.Canonical.Digester()
	size, err := io.Copy(digester.Hash(), f)
	if err != nil {
		return Artifact{}, fmt.Errorf("describe artifact %s: %w", path, err)
	}

	return Artifact{Path: path, Digest: digester.Digest(), Size: size}, nil
}

// DescribeAll describes each path, stopping at the first error.
func DescribeAll(paths []string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := Describe(p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// Verify checks that the file at a.Path still matches a.Digest.
func Verify(a Artifact) error {
	if err := a.Digest.Validate(); err != nil {
		return fmt.Errorf("verify %s: %w", a.Path, err)
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", a.Path, err)
	}
	defer f.Close()

	verifier := a.Digest.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return fmt.Errorf("verify %s: %w", a.Path, err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("verify %s: content does not match %s", a.Path, a.Digest)
	}
	return nil
}

// Find returns the files under dir whose base name matches any of the
// patterns, sorted by path.
func Find(dir string, patterns ...string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if ok {
				found = append(found, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find artifacts in %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
