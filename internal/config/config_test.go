package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/backmassage/tiffexport/internal/naming"
)

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/data/tiff", "/data/tiff"},
		{"single trailing slash", "/data/tiff/", "/data/tiff"},
		{"multiple trailing slashes", "/data/tiff///", "/data/tiff"},
		{"root path", "/", "/"},
		{"relative path", "output", "output"},
		{"relative with slash", "output/", "output"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDirArg(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeDirArg(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Template != naming.DefaultTemplate {
		t.Errorf("Template = %q", cfg.Template)
	}
	if cfg.Fetch != "pe1_image_lightfield" {
		t.Errorf("Fetch = %q", cfg.Fetch)
	}
	if !cfg.UseMtime || cfg.MtimeWindow != 50*time.Millisecond {
		t.Errorf("UseMtime = %v, MtimeWindow = %v", cfg.UseMtime, cfg.MtimeWindow)
	}
	if cfg.Overwrite || cfg.DryRun {
		t.Error("Overwrite and DryRun must default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"color always", func(c *Config) { c.ColorMode = ColorAlways }, false},
		{"unknown color", func(c *Config) { c.ColorMode = "rainbow" }, true},
		{"deflate", func(c *Config) { c.Compression = CompressionDeflate }, false},
		{"unknown compression", func(c *Config) { c.Compression = "jpeg" }, true},
		{"template without N", func(c *Config) { c.Template = "scan{scan_id}.tiff" }, true},
		{"unbalanced template", func(c *Config) { c.Template = "a{N}<b.tiff" }, true},
		{"empty fetch", func(c *Config) { c.Fetch = " " }, true},
		{"zero window", func(c *Config) { c.MtimeWindow = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_TemplateErrorIsInvalidTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Template = "frame.tiff"
	if err := cfg.Validate(); !errors.Is(err, naming.ErrInvalidTemplate) {
		t.Errorf("Validate() error = %v, want ErrInvalidTemplate", err)
	}
}

func TestValidate_NormalizesPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prefix = "/data/out/"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Prefix != "/data/out" {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, "/data/out")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiffexport.hcl")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
template     = "img{N:04d}.tif"
prefix       = "/data/tiff"
fetch        = "det_image"
use_mtime    = false
mtime_window = 0.25
overwrite    = true
compression  = "deflate"
select       = "-3:"
color        = "never"
log_file     = "/tmp/tiffexport.log"
verbose      = true
`)
	cfg := DefaultConfig()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatal(err)
	}
	want := Config{
		Template:    "img{N:04d}.tif",
		Prefix:      "/data/tiff",
		Fetch:       "det_image",
		UseMtime:    false,
		MtimeWindow: 250 * time.Millisecond,
		Overwrite:   true,
		Select:      "-3:",
		Compression: CompressionDeflate,
		Verbose:     true,
		ColorMode:   ColorNever,
		LogFile:     "/tmp/tiffexport.log",
		ConfigFile:  path,
	}
	if cfg != want {
		t.Errorf("LoadFile result\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `prefix = "out"`)
	cfg := DefaultConfig()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Prefix != "out" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.Template != naming.DefaultTemplate || !cfg.UseMtime {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"syntax", `template = `, "failed to parse"},
		{"unknown attribute", `bogus = 1`, "failed to decode"},
		{"wrong type", `use_mtime = "yes please"`, "failed to decode"},
		{"negative window", `mtime_window = -1`, "mtime_window"},
		{"bad compression", `compression = "lzw"`, "invalid compression"},
		{"bad color", `color = "sometimes"`, "invalid color mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := LoadFile(writeConfig(t, tt.body), &cfg)
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("LoadFile error = %v, want containing %q", err, tt.msg)
			}
		})
	}
}

func TestFlags_Precedence(t *testing.T) {
	path := writeConfig(t, `
prefix      = "/from/file"
overwrite   = true
compression = "deflate"
`)
	fs := pflag.NewFlagSet("tiffexport", pflag.ContinueOnError)
	flags := BindFlags(fs)
	args := []string{"--config", path, "-p", "/from/flag", "--no-mtime", "--window", "2s", "-s", "0,2"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	cfg, err := flags.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prefix != "/from/flag" {
		t.Errorf("Prefix = %q, flag should win over file", cfg.Prefix)
	}
	if !cfg.Overwrite || cfg.Compression != CompressionDeflate {
		t.Errorf("file values lost: overwrite=%v compression=%v", cfg.Overwrite, cfg.Compression)
	}
	if cfg.UseMtime {
		t.Error("--no-mtime ignored")
	}
	if cfg.MtimeWindow != 2*time.Second {
		t.Errorf("MtimeWindow = %v", cfg.MtimeWindow)
	}
	if cfg.Select != "0,2" {
		t.Errorf("Select = %q", cfg.Select)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestFlags_UnsetFlagsDoNotOverrideFile(t *testing.T) {
	path := writeConfig(t, `
use_mtime = false
verbose   = true
`)
	fs := pflag.NewFlagSet("tiffexport", pflag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"-c", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := flags.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UseMtime || !cfg.Verbose {
		t.Errorf("flag defaults overrode file: UseMtime=%v Verbose=%v", cfg.UseMtime, cfg.Verbose)
	}
}

func TestFlags_EnumValues(t *testing.T) {
	tests := []struct {
		args    []string
		color   ColorMode
		wantErr bool
	}{
		{[]string{"--color", "always"}, ColorAlways, false},
		{[]string{"--color=NEVER"}, ColorNever, false},
		{[]string{"--no-color"}, ColorNever, false},
		{[]string{"--color", "always", "--no-color"}, ColorNever, false},
		{[]string{"--color", "sometimes"}, "", true},
		{[]string{"--compression", "zip"}, "", true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			fs := pflag.NewFlagSet("tiffexport", pflag.ContinueOnError)
			fs.SetOutput(discard{})
			flags := BindFlags(fs)
			err := fs.Parse(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			cfg, err := flags.Load()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.ColorMode != tt.color {
				t.Errorf("ColorMode = %q, want %q", cfg.ColorMode, tt.color)
			}
		})
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
