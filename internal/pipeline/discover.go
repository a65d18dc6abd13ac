package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDocuments is returned when a records directory holds no documents.
var ErrNoDocuments = errors.New("no record documents found")

// documentExt is the extension of record documents (matched case-insensitively).
const documentExt = ".json"

// Discover resolves the records argument. A regular file is returned as-is
// whatever its extension. A directory is walked for *.json documents,
// pruning hidden directories, and the paths are returned sorted
// lexicographically for deterministic processing order.
func Discover(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), documentExt) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, path)
	}
	sort.Strings(files)
	return files, nil
}
