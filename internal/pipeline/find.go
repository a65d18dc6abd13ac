package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/backmassage/tiffexport/internal/config"
	"github.com/backmassage/tiffexport/internal/display"
	"github.com/backmassage/tiffexport/internal/export"
	"github.com/backmassage/tiffexport/internal/logging"
	"github.com/backmassage/tiffexport/internal/record"
)

// Found is one record with outputs on disk, tagged with its document.
type Found struct {
	Document string
	Time     string
	export.Existing
}

// Find reports the selected records that already have outputs, without
// modifying anything, and prints them as a table.
func Find(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]Found, error) {
	b, err := prepare(cfg, log)
	if err != nil {
		return nil, err
	}

	var found []Found
	selected := 0
	for i := range b.docs {
		if err := ctx.Err(); err != nil {
			log.Warn("Interrupted")
			return found, err
		}
		h, err := b.load(ctx, log, i)
		if err != nil {
			return found, err
		}
		idx, err := b.sel.Indices(len(h.Records))
		if err != nil {
			return found, err
		}
		selected += len(idx)

		ex, err := b.rec.FindExisting(ctx, h, cfg.UseMtime, b.sel)
		if err != nil {
			return found, err
		}
		for _, e := range ex {
			found = append(found, Found{
				Document: b.docs[i],
				Time:     recordTime(h, e.Index),
				Existing: e,
			})
		}
	}

	if len(found) == 0 {
		log.Info("No existing outputs for %d selected records", selected)
		return nil, nil
	}
	printFindTable(log, found)
	log.Info("%d of %d selected records already exported", len(found), selected)
	return found, nil
}

func recordTime(h *record.Header, i int) string {
	t := h.Records[i].Time
	if t.IsZero() {
		return "-"
	}
	return display.FormatTime(t)
}

// matchLabel tells an exact name hit from an mtime match.
func matchLabel(output, file string) string {
	if abs, err := filepath.Abs(output); err == nil && abs == file {
		return "exact"
	}
	return "mtime"
}

func printFindTable(log *logging.Logger, found []Found) {
	idxW := len("Record")
	timeW := len("Time")
	for _, f := range found {
		if n := len(fmt.Sprint(f.Index)); n > idxW {
			idxW = n
		}
		if len(f.Time) > timeW {
			timeW = len(f.Time)
		}
	}

	header := fmt.Sprintf("  %*s  %-*s  %-5s  %s", idxW, "Record", timeW, "Time", "Match", "File")
	log.Info("%s", header)
	log.Info("  %s", strings.Repeat("─", len(header)-2))

	for _, f := range found {
		for k, file := range f.Files {
			idx, at := fmt.Sprint(f.Index), f.Time
			if k > 0 {
				idx, at = "", ""
			}
			log.Info("  %*s  %-*s  %-5s  %s", idxW, idx, timeW, at, matchLabel(f.Output, file), file)
		}
	}
}
