// Package match finds files on disk that already hold a given output,
// either at its exact path or as a sibling whose modification time agrees
// with the record timestamp.
package match

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/backmassage/tiffexport/internal/fsys"
)

// ErrDirectoryUnavailable is wrapped when an output directory cannot be
// listed for fuzzy matching.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// DefaultWindow is the mtime tolerance used when none is configured.
const DefaultWindow = 50 * time.Millisecond

// Matcher locates existing outputs.
type Matcher struct {
	FS fsys.FS
	// Window is the exclusive mtime tolerance for fuzzy matches.
	Window time.Duration
	// Exclude holds absolute paths fuzzy matching never returns. The
	// exporter fills it with the outputs of other records in the batch.
	Exclude map[string]bool
}

// New returns a Matcher over fsys with the default window.
func New(fsys fsys.FS) *Matcher {
	return &Matcher{FS: fsys, Window: DefaultWindow}
}

// Existing returns the absolute paths of files that already represent
// path. The exact file, when present, comes first. When target is not
// zero, same-extension regular files in the same directory whose mtime
// lies strictly within Window of target follow, in directory order.
// A nil cache lists directories afresh.
func (m *Matcher) Existing(path string, target time.Time, cache *DirCache) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var out []string
	if fsys.Exists(m.FS, abs) {
		out = append(out, abs)
	}
	if target.IsZero() {
		return out, nil
	}
	if cache == nil {
		cache = NewDirCache()
	}
	dir := filepath.Dir(abs)
	candidates, err := cache.files(m.FS, dir, filepath.Ext(abs))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, dir, err)
	}
	for _, c := range candidates {
		if c == abs || m.Exclude[c] {
			continue
		}
		info, err := m.FS.Stat(c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if within(info.ModTime(), target, m.window()) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Matcher) window() time.Duration {
	if m.Window <= 0 {
		return DefaultWindow
	}
	return m.Window
}

func within(a, b time.Time, w time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < w
}
