// Package check provides system diagnostics (the check command) and the
// pre-export validation (Preflight) for the output prefix, filesystem mtime
// support and the TIFF encoder.
package check

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/backmassage/tiffexport/internal/config"
	"github.com/backmassage/tiffexport/internal/display"
	"github.com/backmassage/tiffexport/internal/naming"
	"github.com/backmassage/tiffexport/internal/record"
	"github.com/backmassage/tiffexport/internal/tiffio"
)

// Sentinel errors returned by Preflight.
var (
	ErrPrefixNotDirectory = errors.New("output prefix exists but is not a directory")
	ErrPrefixNotWritable  = errors.New("output prefix is not writable")
	ErrMtimeUnsupported   = errors.New("filesystem does not allow setting modification times")
	ErrTIFFEncodeFailed   = errors.New("TIFF test encode failed")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck prints what an export with cfg would run into: the rendered
// template, the output prefix, mtime resolution and TIFF encoding.
// This is informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkTemplate(cfg, log)
	dir := checkPrefix(cfg, log)
	if dir != "" {
		checkMtime(cfg, dir, log)
		checkTIFF(cfg, dir, log)
	}
}

// sampleHeader is a one-event run used to render the template.
func sampleHeader() *record.Header {
	doc := cty.ObjectVal(map[string]cty.Value{
		"start": cty.ObjectVal(map[string]cty.Value{
			"scan_id": cty.NumberIntVal(1),
			"uid":     cty.StringVal("00000000-check"),
		}),
		"events": cty.TupleVal([]cty.Value{cty.ObjectVal(map[string]cty.Value{
			"seq_num": cty.NumberIntVal(1),
			"time":    cty.NumberFloatVal(1.7e9),
			"data": cty.ObjectVal(map[string]cty.Value{
				"cs700": cty.NumberFloatVal(300),
			}),
		})}),
	})
	h, err := record.FromValue(doc)
	if err != nil {
		panic(err) // static document
	}
	return h
}

// checkTemplate renders the template against a sample record.
func checkTemplate(cfg *config.Config, log Logger) {
	n, err := naming.New(cfg.Template, cfg.Prefix)
	if err != nil {
		log.Error("template: %v", err)
		return
	}
	name, err := n.Name(sampleHeader(), 0)
	if err != nil {
		log.Warn("template %q does not render for a sample record: %v", cfg.Template, err)
		return
	}
	log.Success("template: %s", cfg.Template)
	log.Info("  sample -> %s", name)
}

// checkPrefix reports the output directory and returns a directory to run
// the write checks in, or "" when there is none.
func checkPrefix(cfg *config.Config, log Logger) string {
	dir := prefixDir(cfg.Prefix)
	fi, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("prefix %s does not exist yet (created on export)", dir)
		return os.TempDir()
	case err != nil:
		log.Error("prefix %s: %v", dir, err)
		return ""
	case !fi.IsDir():
		log.Error("prefix %s: %v", dir, ErrPrefixNotDirectory)
		return ""
	}
	if err := tryWrite(dir); err != nil {
		log.Error("prefix %s: %v", dir, err)
		return ""
	}
	log.Success("prefix %s is writable", dir)
	return dir
}

// checkMtime measures the mtime resolution and compares it with the window.
func checkMtime(cfg *config.Config, dir string, log Logger) {
	res, err := mtimeResolution(dir)
	if err != nil {
		log.Error("mtime check in %s: %v", dir, err)
		return
	}
	log.Success("mtime resolution: %s", display.FormatWindow(res))
	if cfg.UseMtime && res >= cfg.MtimeWindow {
		log.Warn("mtime window %s is not wider than the filesystem resolution; fuzzy matches may be missed",
			display.FormatWindow(cfg.MtimeWindow))
	}
}

// checkTIFF encodes and decodes a small image with the configured compression.
func checkTIFF(cfg *config.Config, dir string, log Logger) {
	size, err := roundTripTIFF(dir, string(cfg.Compression))
	if err != nil {
		log.Error("TIFF %s encode: %v", cfg.Compression, err)
		return
	}
	log.Success("TIFF %s encode works (%s test image)", cfg.Compression, display.FormatBytes(size))
}

// Preflight is the pre-export validation: the prefix must be a writable
// directory (or creatable), mtimes must be settable when UseMtime is on, and
// the TIFF encoder must work with the chosen compression. Dry runs touch
// nothing, so only the directory shape is checked. Returns a sentinel error
// on failure.
func Preflight(cfg *config.Config) error {
	dir := prefixDir(cfg.Prefix)
	fi, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if cfg.DryRun {
			return nil
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrPrefixNotWritable, err)
		}
	case err != nil:
		return fmt.Errorf("%w: %v", ErrPrefixNotWritable, err)
	case !fi.IsDir():
		return fmt.Errorf("%w: %s", ErrPrefixNotDirectory, dir)
	}
	if cfg.DryRun {
		return nil
	}

	if err := tryWrite(dir); err != nil {
		return err
	}
	if cfg.UseMtime {
		if _, err := mtimeResolution(dir); err != nil {
			return fmt.Errorf("%w: %v", ErrMtimeUnsupported, err)
		}
	}
	if _, err := roundTripTIFF(dir, string(cfg.Compression)); err != nil {
		return fmt.Errorf("%w: %v", ErrTIFFEncodeFailed, err)
	}
	return nil
}

// --- internal helpers ---

func prefixDir(prefix string) string {
	if prefix == "" {
		return "."
	}
	return prefix
}

// tryWrite creates and removes a temp file in dir.
func tryWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".tiffexport-check-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrefixNotWritable, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// resolutions are tried finest first; 2s covers FAT.
var resolutions = []time.Duration{
	time.Nanosecond, time.Microsecond, time.Millisecond, time.Second, 2 * time.Second,
}

// mtimeResolution stamps a temp file in dir with a sub-microsecond mtime
// and reports the coarsest truncation the filesystem applied.
func mtimeResolution(dir string) (time.Duration, error) {
	f, err := os.CreateTemp(dir, ".tiffexport-mtime-*")
	if err != nil {
		return 0, err
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	want := time.Unix(1700000001, 123456789)
	if err := os.Chtimes(name, time.Time{}, want); err != nil {
		return 0, err
	}
	fi, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	got := fi.ModTime()
	for _, r := range resolutions {
		if got.Equal(want.Truncate(r)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("mtime %s read back as %s", display.FormatTime(want), display.FormatTime(got))
}

// roundTripTIFF writes a small gradient with tiffio, reads it back and
// returns the encoded size.
func roundTripTIFF(dir, compression string) (int64, error) {
	c, err := tiffio.ParseCompression(compression)
	if err != nil {
		return 0, err
	}
	img := image.NewGray16(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x*4096 + y)})
		}
	}

	tmp, err := os.MkdirTemp(dir, ".tiffexport-tiff-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmp)

	path := filepath.Join(tmp, "sample.tiff")
	w := &tiffio.Writer{Compression: c}
	if err := w.WriteImage(path, img); err != nil {
		return 0, err
	}
	back, err := tiffio.Read(path)
	if err != nil {
		return 0, err
	}
	if !back.Bounds().Eq(img.Bounds()) {
		return 0, fmt.Errorf("decoded bounds %v, want %v", back.Bounds(), img.Bounds())
	}
	if got := color.Gray16Model.Convert(back.At(15, 3)).(color.Gray16).Y; got != img.Gray16At(15, 3).Y {
		return 0, fmt.Errorf("decoded pixel %d, want %d", got, img.Gray16At(15, 3).Y)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
