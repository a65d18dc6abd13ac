// Package tiffio writes images as TIFF files without ever exposing a
// partially written file at the destination path.
package tiffio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Compression selects the TIFF compression scheme.
type Compression string

const (
	CompressionNone    Compression = "none"
	CompressionDeflate Compression = "deflate"
)

// ErrUnknownCompression is returned for compression names other than
// "none" and "deflate".
var ErrUnknownCompression = errors.New("unknown compression")

// ParseCompression maps a config value onto a Compression. The empty
// string selects CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionDeflate:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q (want none or deflate)", ErrUnknownCompression, s)
}

func (c Compression) options() *tiff.Options {
	if c == CompressionDeflate {
		return &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	}
	return &tiff.Options{Compression: tiff.Uncompressed}
}

const bufSize = 256 << 10

// Writer encodes images to TIFF. Each file is written to a temporary
// sibling, synced and renamed into place, so readers never observe a
// truncated image.
type Writer struct {
	Compression Compression
	Perm        os.FileMode // zero means 0o644
}

// WriteImage encodes img and atomically replaces path with it.
func (w *Writer) WriteImage(path string, img image.Image) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tiffexport-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	_ = os.Chmod(tmpPath, perm)

	bw := bufio.NewWriterSize(tmp, bufSize)
	if err := tiff.Encode(bw, img, w.Compression.options()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Read decodes the TIFF file at path.
func Read(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tiff.Decode(bufio.NewReader(f))
}
