// Package workspace manages the build workspace layout: the Conf directory
// the build engine reads its settings from, and the outputs removed by a
// clean.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Templates are the configuration files copied from BaseTools/Conf.
var Templates = []string{"target", "tools_def", "build_rule"}

// Workspace-relative paths.
const (
	ConfDir   = "Conf"
	BuildDir  = "Build"
	ReportLog = "Report.log"
)

// ConfPath returns the Conf directory of a workspace.
func ConfPath(workspace string) string {
	return filepath.Join(workspace, ConfDir)
}

// TemplatePath returns the template file for name under the source tree.
func TemplatePath(source, name string) string {
	return filepath.Join(source, "BaseTools", "Conf", name+".template")
}

// EnsureConf creates <workspace>/Conf and copies each missing
// <name>.txt from its template. Existing files are never overwritten, even
// when another process creates one concurrently. Returns the files written.
func EnsureConf(workspace, source string) ([]string, error) {
	conf := ConfPath(workspace)
	if err := os.MkdirAll(conf, 0o755); err != nil {
		return nil, fmt.Errorf("create conf directory: %w", err)
	}

	var copied []string
	for _, name := range Templates {
		dst := filepath.Join(conf, name+".txt")

		ok, err := copyIfAbsent(TemplatePath(source, name), dst)
		if err != nil {
			return copied, fmt.Errorf("copy %s template: %w", name, err)
		}
		if ok {
			slog.Debug("conf file created", "path", dst)
			copied = append(copied, dst)
		}
	}
	return copied, nil
}

// Copies src to dst with an exclusive create. Returns false if dst exists.
func copyIfAbsent(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return false, err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return false, err
	}
	return true, nil
}

// Clean removes Build/, Conf/ and Report.log from the workspace. Missing
// entries are skipped silently. Returns the paths that were removed.
func Clean(workspace string) ([]string, error) {
	var removed []string
	for _, name := range []string{BuildDir, ConfDir, ReportLog} {
		p := filepath.Join(workspace, name)
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := os.RemoveAll(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		slog.Debug("removed", "path", p)
		removed = append(removed, p)
	}
	return removed, nil
}
