// Package pipeline loads record documents, builds the export collaborators
// from the configuration, runs export or find passes over each document,
// and reports batch summaries.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/backmassage/tiffexport/internal/config"
	"github.com/backmassage/tiffexport/internal/display"
	"github.com/backmassage/tiffexport/internal/export"
	"github.com/backmassage/tiffexport/internal/fsys"
	"github.com/backmassage/tiffexport/internal/logging"
	"github.com/backmassage/tiffexport/internal/naming"
	"github.com/backmassage/tiffexport/internal/record"
	"github.com/backmassage/tiffexport/internal/tiffio"
)

// ErrNoRecordsPath is returned when no records argument was given.
var ErrNoRecordsPath = errors.New("no records document given")

// batch is everything a pass needs that does not depend on the document.
type batch struct {
	docs []string
	sel  export.Selection
	rec  *export.Reconciler
}

func prepare(cfg *config.Config, log *logging.Logger) (*batch, error) {
	if cfg.RecordsPath == "" {
		return nil, ErrNoRecordsPath
	}
	sel, err := export.ParseSelection(cfg.Select)
	if err != nil {
		return nil, err
	}
	docs, err := Discover(cfg.RecordsPath)
	if err != nil {
		return nil, err
	}
	rec, err := newReconciler(cfg, log)
	if err != nil {
		return nil, err
	}
	return &batch{docs: docs, sel: sel, rec: rec}, nil
}

// newReconciler wires the naming, filesystem and TIFF writer for cfg.
func newReconciler(cfg *config.Config, log *logging.Logger) (*export.Reconciler, error) {
	n, err := naming.New(cfg.Template, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	comp, err := tiffio.ParseCompression(string(cfg.Compression))
	if err != nil {
		return nil, err
	}
	return &export.Reconciler{
		Naming:  n,
		FS:      fsys.OS{},
		Writer:  &tiffio.Writer{Compression: comp},
		Log:     log,
		Window:  cfg.MtimeWindow,
		Verbose: cfg.Verbose,
	}, nil
}

// load reads document i of b, logging its position when there are several.
func (b *batch) load(ctx context.Context, log *logging.Logger, i int) (*record.Header, error) {
	path := b.docs[i]
	if len(b.docs) > 1 {
		log.Info("[%d/%d] %s", i+1, len(b.docs), filepath.Base(path))
	}
	h, err := record.JSONFile{Path: path}.Header(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug(b.rec.Verbose, "%s: %d records", path, len(h.Records))
	return h, nil
}

// Run is the export entry point. Every document found under
// cfg.RecordsPath gets its own export pass, in sorted order. The first
// failing record stops the run; the returned stats cover everything done
// up to that point.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (RunStats, error) {
	var stats RunStats

	b, err := prepare(cfg, log)
	if err != nil {
		return stats, err
	}
	logBatchHeader(cfg, log, b)

	// The prefix must exist before the first pass lists it for mtime
	// matches; a dry run leaves the disk alone and fails on a missing one.
	if p := b.rec.Naming.Prefix(); p != "" && !cfg.DryRun {
		if err := b.rec.FS.MkdirAll(p, 0o755); err != nil {
			return stats, err
		}
	}

	fetch := record.FieldFetcher{Field: cfg.Fetch}
	opts := export.Options{
		Overwrite: cfg.Overwrite,
		DryRun:    cfg.DryRun,
		UseMtime:  cfg.UseMtime,
		Select:    b.sel,
	}
	for i := range b.docs {
		if err := ctx.Err(); err != nil {
			log.Warn("Interrupted")
			return stats, err
		}
		h, err := b.load(ctx, log, i)
		if err != nil {
			logSummary(cfg, log, &stats)
			return stats, err
		}
		s, err := b.rec.Export(ctx, h, fetch, opts)
		stats.add(s)
		if err != nil {
			logSummary(cfg, log, &stats)
			return stats, err
		}
	}

	logSummary(cfg, log, &stats)
	return stats, nil
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, b *batch) {
	if len(b.docs) == 1 {
		log.Info("Records: %s", b.docs[0])
	} else {
		log.Info("Found %d record documents in %s", len(b.docs), cfg.RecordsPath)
	}
	log.Info("Template: %s", cfg.Template)
	if cfg.Prefix != "" {
		log.Info("Prefix: %s", cfg.Prefix)
	}
	if cfg.UseMtime {
		log.Info("Match: exact name, or same extension within %s of the record time", display.FormatWindow(cfg.MtimeWindow))
	} else {
		log.Info("Match: exact name only")
	}
	if !b.sel.All() {
		log.Info("Selection: %s", b.sel)
	}
	log.Info("Compression: %s", cfg.Compression)
	if cfg.Overwrite {
		log.Info("Existing outputs: replace")
	}
	if cfg.DryRun {
		log.Warn("DRY RUN")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d written, %d skipped, %d failed", stats.Written, stats.Skipped, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Records selected: %d of %d (%d processed)", stats.Selected, stats.Total, stats.Processed())
	if stats.Documents > 1 {
		log.Info("  Documents: %d", stats.Documents)
	}
	if stats.Removed > 0 {
		log.Info("  Existing outputs removed: %d", stats.Removed)
	}

	if cfg.DryRun {
		log.Info("  Bytes written: n/a (dry run)")
		return
	}
	log.Success("  Bytes written: %s", display.FormatBytes(stats.BytesWritten))
}
