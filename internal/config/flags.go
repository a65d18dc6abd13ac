package config

// This file registers the CLI flags shared by every command.
// Flags are bound to a private Config so that only flags the user actually
// passed override values from defaults and the config file.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// version is shown by --version; override at build time with -ldflags "-X ...config.version=...".
var version = "0.3.0-dev"

// Version returns the build version string.
func Version() string { return version }

// Flags holds the values bound to a flag set.
type Flags struct {
	fs  *pflag.FlagSet
	v   Config
	neg negatedFlags
}

// negatedFlags invert a default when passed (e.g. noMtime -> UseMtime=false).
type negatedFlags struct {
	noMtime bool
	noColor bool
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, v: DefaultConfig()}
	defineNamingFlags(fs, &f.v)
	defineBehaviorFlags(fs, &f.v, &f.neg)
	defineDisplayFlags(fs, &f.v, &f.neg)
	return f
}

// defineNamingFlags registers -t/--template, -p/--prefix, --fetch.
func defineNamingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Template, "template", "t", cfg.Template, "Output name template")
	fs.StringVarP(&cfg.Prefix, "prefix", "p", cfg.Prefix, "Directory output names are joined onto")
	fs.StringVar(&cfg.Fetch, "fetch", cfg.Fetch, "Event data field holding the image")
}

// defineBehaviorFlags registers overwrite, dry-run, mtime, window, select, compression.
func defineBehaviorFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVarP(&cfg.Overwrite, "overwrite", "f", false, "Replace existing outputs")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", false, "Preview only; do not remove or write files")
	fs.BoolVar(&cfg.UseMtime, "mtime", cfg.UseMtime, "Match and stamp outputs by record time")
	fs.BoolVar(&n.noMtime, "no-mtime", false, "Same as --mtime=false")
	fs.DurationVar(&cfg.MtimeWindow, "window", cfg.MtimeWindow, "Tolerance for mtime matches")
	fs.StringVarP(&cfg.Select, "select", "s", "", "Records to export: index list (0,2,-1) or slice (-3:, 1:10:2)")
	fs.Var(&compressionValue{&cfg.Compression}, "compression", "TIFF compression: none | deflate")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log, --config.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Var(&colorModeValue{&cfg.ColorMode}, "color", "Colored logs: auto | always | never")
	fs.BoolVar(&n.noColor, "no-color", false, "Same as --color=never")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	fs.StringVarP(&cfg.LogFile, "log", "l", "", "Append logs to file")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "HCL config file")
}

// ConfigFile returns the --config value.
func (f *Flags) ConfigFile() string { return f.v.ConfigFile }

// Apply copies every flag the user passed onto cfg.
func (f *Flags) Apply(cfg *Config) {
	changed := func(name string) bool {
		fl := f.fs.Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("template") {
		cfg.Template = f.v.Template
	}
	if changed("prefix") {
		cfg.Prefix = f.v.Prefix
	}
	if changed("fetch") {
		cfg.Fetch = f.v.Fetch
	}
	if changed("overwrite") {
		cfg.Overwrite = f.v.Overwrite
	}
	if changed("dry-run") {
		cfg.DryRun = f.v.DryRun
	}
	if changed("mtime") {
		cfg.UseMtime = f.v.UseMtime
	}
	if f.neg.noMtime {
		cfg.UseMtime = false
	}
	if changed("window") {
		cfg.MtimeWindow = f.v.MtimeWindow
	}
	if changed("select") {
		cfg.Select = f.v.Select
	}
	if changed("compression") {
		cfg.Compression = f.v.Compression
	}
	if changed("color") {
		cfg.ColorMode = f.v.ColorMode
	}
	if f.neg.noColor {
		cfg.ColorMode = ColorNever
	}
	if changed("verbose") {
		cfg.Verbose = f.v.Verbose
	}
	if changed("log") {
		cfg.LogFile = f.v.LogFile
	}
}

// Load builds the effective Config: defaults, then the --config file when
// given, then flags. The result is validated.
func (f *Flags) Load() (Config, error) {
	cfg := DefaultConfig()
	if path := f.ConfigFile(); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	f.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// pflag.Value adapters so we can use enum types (ColorMode, Compression) with fs.Var.

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Type() string   { return "mode" }
func (c *colorModeValue) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		*c.p = ColorAuto
	case "always":
		*c.p = ColorAlways
	case "never":
		*c.p = ColorNever
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}

type compressionValue struct{ p *Compression }

func (c *compressionValue) String() string { return string(*c.p) }
func (c *compressionValue) Type() string   { return "scheme" }
func (c *compressionValue) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		*c.p = CompressionNone
	case "deflate":
		*c.p = CompressionDeflate
	default:
		return fmt.Errorf("invalid compression %q (use 'none' or 'deflate')", s)
	}
	return nil
}
