package match

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/backmassage/tiffexport/internal/fsys"
)

// DirCache remembers the regular files of each directory listed during
// one matching pass. It is owned by a single pass and is not safe for
// concurrent use; start a new one whenever the disk may have changed in
// ways the pass did not cause.
type DirCache struct {
	listings map[string][]string
	scans    int
}

// NewDirCache returns an empty cache.
func NewDirCache() *DirCache {
	return &DirCache{listings: make(map[string][]string)}
}

// Scans returns how many directory listings the cache has performed.
func (c *DirCache) Scans() int { return c.scans }

// files returns the absolute paths of the regular files in dir whose
// names end in ext. An empty ext selects every regular file. A directory
// that cannot be listed, missing included, is an error.
func (c *DirCache) files(fsys fsys.FS, dir, ext string) ([]string, error) {
	names, ok := c.listings[dir]
	if !ok {
		var err error
		names, err = c.list(fsys, dir)
		if err != nil {
			return nil, err
		}
		c.listings[dir] = names
	}
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, ext) {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return out, nil
}

func (c *DirCache) list(fsys fsys.FS, dir string) ([]string, error) {
	c.scans++
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
			continue
		}
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		// Follow links so a symlinked frame still counts as a file.
		info, err := fsys.Stat(filepath.Join(dir, e.Name()))
		if err == nil && info.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
