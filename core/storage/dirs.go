// Package storage provides platform-native directory resolution with XDG support
// and atomic output files.
package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

const appName = "txrank"

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration (config.yaml)
}

// ProjectDirs returns project-local directories.
type ProjectDirs struct {
	Root   string // .txrank/
	Config string // .txrank/config.yaml (committed)
	Local  string // .txrank/local/ (gitignored)
}

// ResolveDirs returns platform-appropriate directories. Environment variables are
// read on every call.
func ResolveDirs() (*Dirs, error) {
	return &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
	}, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories for the given project root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	dir := filepath.Join(projectRoot, "."+appName)
	return &ProjectDirs{
		Root:   dir,
		Config: filepath.Join(dir, "config.yaml"),
		Local:  filepath.Join(dir, "local"),
	}
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
// Uses 0755 by default.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0755
	}
	return os.MkdirAll(path, perm)
}

// WriteFileAtomic creates path through a temp file in the same directory that is
// renamed into place only when write returns nil. On any error the temp file is
// removed and an existing file at path is left untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir, 0); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
