// Package config holds runtime configuration: defaults, an optional HCL
// config file, CLI flags, and validation. Later sources override earlier
// ones in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backmassage/tiffexport/internal/match"
	"github.com/backmassage/tiffexport/internal/naming"
	"github.com/backmassage/tiffexport/internal/record"
)

// --- Enum types for validated string fields ---

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Compression is the TIFF compression written for new outputs.
type Compression string

const (
	CompressionNone    Compression = "none" // Default.
	CompressionDeflate Compression = "deflate"
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by [LoadFile] and [Flags.Apply], before being passed (by pointer) to
// packages that need it.
type Config struct {
	// Input (set from the positional argument).
	RecordsPath string

	// Naming.
	Template string // Default: naming.DefaultTemplate.
	Prefix   string // Output directory joined onto relative names.
	Fetch    string // Event data field holding the image. Default: "pe1_image_lightfield".

	// Reconciliation.
	UseMtime    bool          // Default: true. Match and stamp outputs by record time.
	MtimeWindow time.Duration // Default: 50ms.
	Overwrite   bool
	DryRun      bool
	Select      string // Record selection, e.g. "-3:" or "0,4". Empty selects all.

	// Output encoding.
	Compression Compression // Default: "none".

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.

	// ConfigFile is the HCL file the settings were loaded from, if any.
	ConfigFile string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Template:    naming.DefaultTemplate,
		Fetch:       record.DefaultField,
		UseMtime:    true,
		MtimeWindow: match.DefaultWindow,
		Compression: CompressionNone,
		ColorMode:   ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields, the template grammar and the mtime window.
// It does not require RecordsPath; commands that need one check it
// themselves. Select is parsed by the export pass.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	switch c.Compression {
	case CompressionNone, CompressionDeflate:
		// valid
	default:
		return errors.New("invalid compression (use 'none' or 'deflate')")
	}

	if err := naming.Validate(c.Template); err != nil {
		return err
	}
	if strings.TrimSpace(c.Fetch) == "" {
		return errors.New("fetch field must not be empty")
	}
	if c.MtimeWindow <= 0 {
		return fmt.Errorf("mtime window must be positive (got %v)", c.MtimeWindow)
	}
	c.Prefix = NormalizeDirArg(c.Prefix)
	return nil
}
