package config

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// fileConfig is the decoded shape of a config file. Every attribute is
// optional; nil means "keep the current value".
//
//	template     = "scan{scan_id:05d}_{N:03d}.tiff"
//	prefix       = "/data/tiff"
//	fetch        = "pe1_image_lightfield"
//	use_mtime    = true
//	mtime_window = 0.05   # seconds
//	overwrite    = false
//	compression  = "deflate"
//	select       = "-3:"
//	color        = "auto"
//	log_file     = "/var/log/tiffexport.log"
//	verbose      = false
type fileConfig struct {
	Template    *string  `hcl:"template,optional"`
	Prefix      *string  `hcl:"prefix,optional"`
	Fetch       *string  `hcl:"fetch,optional"`
	UseMtime    *bool    `hcl:"use_mtime,optional"`
	MtimeWindow *float64 `hcl:"mtime_window,optional"`
	Overwrite   *bool    `hcl:"overwrite,optional"`
	Compression *string  `hcl:"compression,optional"`
	Select      *string  `hcl:"select,optional"`
	Color       *string  `hcl:"color,optional"`
	LogFile     *string  `hcl:"log_file,optional"`
	Verbose     *bool    `hcl:"verbose,optional"`
}

// LoadFile parses the HCL file at path and applies the attributes it sets
// onto cfg. Unknown attributes are an error.
func LoadFile(path string, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}
	if err := fc.apply(cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.Template, fc.Template)
	setString(&cfg.Prefix, fc.Prefix)
	setString(&cfg.Fetch, fc.Fetch)
	setString(&cfg.Select, fc.Select)
	setString(&cfg.LogFile, fc.LogFile)
	setBool(&cfg.UseMtime, fc.UseMtime)
	setBool(&cfg.Overwrite, fc.Overwrite)
	setBool(&cfg.Verbose, fc.Verbose)
	if fc.MtimeWindow != nil {
		w := *fc.MtimeWindow
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("mtime_window must be a positive number of seconds (got %v)", w)
		}
		cfg.MtimeWindow = time.Duration(math.Round(w * float64(time.Second)))
	}
	if fc.Compression != nil {
		if err := (&compressionValue{&cfg.Compression}).Set(*fc.Compression); err != nil {
			return err
		}
	}
	if fc.Color != nil {
		if err := (&colorModeValue{&cfg.ColorMode}).Set(*fc.Color); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
