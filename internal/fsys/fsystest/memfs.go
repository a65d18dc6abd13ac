// Package fsystest provides an in-memory fsys.FS for tests.
package fsystest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/backmassage/tiffexport/internal/fsys"
)

// MemFS is an in-memory fsys.FS. Paths are cleaned
// before use; directories are implied by the files beneath them unless
// created explicitly with MkdirAll.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]bool

	// ReadDirCalls counts ReadDir invocations per cleaned directory.
	ReadDirCalls map[string]int
}

type memFile struct {
	size  int64
	mtime time.Time
	atime time.Time
}

// NewMemFS returns an empty MemFS rooted at "/".
func NewMemFS() *MemFS {
	return &MemFS{
		files:        make(map[string]*memFile),
		dirs:         map[string]bool{string(filepath.Separator): true},
		ReadDirCalls: make(map[string]int),
	}
}

var _ fsys.FS = (*MemFS)(nil)

// AddFile creates (or replaces) a regular file with the given mtime.
func (m *MemFS) AddFile(name string, size int64, mtime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.files[name] = &memFile{size: size, mtime: mtime, atime: mtime}
	m.addParents(name)
}

func (m *MemFS) addParents(name string) {
	for d := filepath.Dir(name); ; d = filepath.Dir(d) {
		m.dirs[d] = true
		if d == filepath.Dir(d) {
			return
		}
	}
}

// Paths returns all file paths in sorted order.
func (m *MemFS) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ATime returns the recorded access time for name.
func (m *MemFS) ATime(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(name)]
	if !ok {
		return time.Time{}, false
	}
	return f.atime, true
}

func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if f, ok := m.files[name]; ok {
		return memInfo{name: filepath.Base(name), f: f}, nil
	}
	if m.dirs[name] {
		return memInfo{name: filepath.Base(name), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *MemFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.ReadDirCalls[name]++
	if !m.dirs[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	seen := make(map[string]fs.DirEntry)
	prefix := name + string(filepath.Separator)
	if name == string(filepath.Separator) {
		prefix = name
	}
	for p, f := range m.files {
		if rest, ok := strings.CutPrefix(p, prefix); ok && !strings.ContainsRune(rest, filepath.Separator) {
			seen[rest] = fs.FileInfoToDirEntry(memInfo{name: rest, f: f})
		}
	}
	for d := range m.dirs {
		if rest, ok := strings.CutPrefix(d, prefix); ok && rest != "" && !strings.ContainsRune(rest, filepath.Separator) {
			seen[rest] = fs.FileInfoToDirEntry(memInfo{name: rest, dir: true})
		}
	}
	out := make([]fs.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if _, ok := m.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

func (m *MemFS) Chtimes(name string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(name)]
	if !ok {
		return &fs.PathError{Op: "chtimes", Path: name, Err: fs.ErrNotExist}
	}
	if !atime.IsZero() {
		f.atime = atime
	}
	if !mtime.IsZero() {
		f.mtime = mtime
	}
	return nil
}

func (m *MemFS) MkdirAll(name string, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.dirs[name] = true
	m.addParents(name)
	return nil
}

type memInfo struct {
	name string
	f    *memFile
	dir  bool
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64 {
	if i.f == nil {
		return 0
	}
	return i.f.size
}
func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i memInfo) ModTime() time.Time {
	if i.f == nil {
		return time.Time{}
	}
	return i.f.mtime
}
func (i memInfo) IsDir() bool { return i.dir }
func (i memInfo) Sys() any    { return nil }
