// Package export reconciles generated output names with what is already on
// disk, then skips, replaces or writes one image per selected record.
package export

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/backmassage/tiffexport/internal/display"
	"github.com/backmassage/tiffexport/internal/fsys"
	"github.com/backmassage/tiffexport/internal/match"
	"github.com/backmassage/tiffexport/internal/naming"
	"github.com/backmassage/tiffexport/internal/record"
)

// ImageWriter persists one image at path, replacing any file there.
type ImageWriter interface {
	WriteImage(path string, img image.Image) error
}

// Logger is the logging surface the reconciler needs.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Dry(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Options control one export pass.
type Options struct {
	Overwrite bool
	DryRun    bool
	// UseMtime enables fuzzy matching on record time and stamps written
	// files with it.
	UseMtime bool
	Select   Selection
}

// Existing lists the files already representing one record's output.
type Existing struct {
	Index  int
	Output string
	Files  []string
}

// Reconciler runs export passes. Its fields are read-only during a pass.
type Reconciler struct {
	Naming  *naming.Naming
	FS      fsys.FS
	Writer  ImageWriter
	Log     Logger
	Window  time.Duration // fuzzy mtime tolerance; zero means match.DefaultWindow
	Verbose bool
}

// planned is a selected record with its name and pre-mutation matches.
type planned struct {
	index   int
	output  string
	matches []string
}

// plan names every selected record and looks up its existing outputs.
// All lookups share one directory cache and happen before anything on
// disk changes.
func (r *Reconciler) plan(ctx context.Context, h *record.Header, useMtime bool, sel Selection) ([]planned, error) {
	indices, err := sel.Indices(len(h.Records))
	if err != nil {
		return nil, err
	}
	claims := naming.NewClaims()
	out := make([]planned, 0, len(indices))
	exclude := make(map[string]bool, len(indices))
	for _, i := range indices {
		name, err := r.Naming.Name(h, i)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		if owner, collided := claims.Claim(i, name); collided {
			r.Log.Warn("records %d and %d both map to %s", owner, i, name)
		}
		if abs, err := filepath.Abs(name); err == nil {
			exclude[abs] = true
		}
		out = append(out, planned{index: i, output: name})
	}

	m := &match.Matcher{FS: r.FS, Window: r.Window, Exclude: exclude}
	cache := match.NewDirCache()
	for k := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := &out[k]
		var target time.Time
		if useMtime {
			target = matchTarget(h.Records[p.index].Time)
		}
		p.matches, err = m.Existing(p.output, target, cache)
		if err != nil {
			return nil, &RecordError{Index: p.index, Path: p.output, Err: err}
		}
	}
	r.Log.Debug(r.Verbose, "Listed %d output directories for %d records", cache.Scans(), len(out))
	return out, nil
}

// matchTarget is the time fuzzy matching runs against. An event stamped
// at the Unix epoch counts as having no time.
func matchTarget(t time.Time) time.Time {
	if t.Unix() == 0 && t.Nanosecond() == 0 {
		return time.Time{}
	}
	return t
}

// FindExisting reports, in record order, the selected records that already
// have at least one output on disk. Nothing is modified.
func (r *Reconciler) FindExisting(ctx context.Context, h *record.Header, useMtime bool, sel Selection) ([]Existing, error) {
	plans, err := r.plan(ctx, h, useMtime, sel)
	if err != nil {
		return nil, err
	}
	var out []Existing
	for _, p := range plans {
		if len(p.matches) == 0 {
			continue
		}
		out = append(out, Existing{Index: p.index, Output: p.output, Files: p.matches})
	}
	return out, nil
}

// Export writes the image of every selected record whose output is not
// already on disk. With Overwrite, existing outputs are removed first.
// The first failing record stops the pass with a *RecordError.
func (r *Reconciler) Export(ctx context.Context, h *record.Header, fetch record.ImageFetcher, opts Options) (Stats, error) {
	stats := Stats{Total: len(h.Records)}
	plans, err := r.plan(ctx, h, opts.UseMtime, opts.Select)
	if err != nil {
		return stats, err
	}
	stats.Selected = len(plans)

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			r.Log.Warn("Interrupted")
			return stats, err
		}
		if err := r.exportOne(h, fetch, opts, p, &stats); err != nil {
			stats.Failed++
			return stats, &RecordError{Index: p.index, Path: p.output, Err: err}
		}
	}
	return stats, nil
}

func (r *Reconciler) exportOne(h *record.Header, fetch record.ImageFetcher, opts Options, p planned, stats *Stats) error {
	if !opts.Overwrite && len(p.matches) > 0 {
		for _, o := range p.matches {
			r.Log.Warn("skip %s already saved as %s", p.output, o)
		}
		stats.Skipped++
		return nil
	}

	for _, o := range p.matches {
		if opts.DryRun {
			r.Log.Dry("Would remove existing output %s", o)
			continue
		}
		r.Log.Info("remove existing output %s", o)
		err := r.FS.Remove(o)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			r.Log.Debug(r.Verbose, "%s already gone", o)
		case err != nil:
			return err
		default:
			stats.Removed++
		}
	}

	rec := h.Records[p.index]
	stamp := opts.UseMtime && !rec.Time.IsZero()
	if opts.DryRun {
		r.Log.Dry("Would write image data to %s", p.output)
		if stamp {
			r.Log.Dry("Would adjust image file mtime to %s", display.FormatTime(rec.Time))
		}
		stats.Written++
		return nil
	}

	img, err := fetch.FetchImage(h, p.index)
	if err != nil {
		return err
	}
	if err := r.FS.MkdirAll(filepath.Dir(p.output), 0o755); err != nil {
		return err
	}
	r.Log.Info("write image data to %s", p.output)
	if err := r.Writer.WriteImage(p.output, img); err != nil {
		return err
	}
	if stamp {
		r.Log.Info("adjust image file mtime to %s", display.FormatTime(rec.Time))
		if err := r.FS.Chtimes(p.output, time.Time{}, rec.Time); err != nil {
			return err
		}
	}
	stats.Written++
	if info, err := r.FS.Stat(p.output); err == nil {
		stats.BytesWritten += info.Size()
		r.Log.Debug(r.Verbose, "%s: %s", filepath.Base(p.output), display.FormatBytes(info.Size()))
	}
	return nil
}
