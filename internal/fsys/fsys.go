// Package fsys defines the narrow filesystem surface used by matching and
// export, so both can run against the real disk or an in-memory double.
package fsys

import (
	"io/fs"
	"os"
	"time"
)

// FS is the set of filesystem operations the exporter relies on.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Remove(name string) error
	// Chtimes sets access and modification times. A zero time leaves the
	// corresponding file time unchanged.
	Chtimes(name string, atime, mtime time.Time) error
	MkdirAll(name string, perm fs.FileMode) error
}

// OS is the FS backed by package os.
type OS struct{}

var _ FS = OS{}

func (OS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OS) Remove(name string) error                   { return os.Remove(name) }
func (OS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}
func (OS) MkdirAll(name string, perm fs.FileMode) error { return os.MkdirAll(name, perm) }

// Exists reports whether name can be stat'ed through fsys.
func Exists(fsys FS, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}
