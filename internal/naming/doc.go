// Package naming builds output file names from a template and per-record
// field values.
//
// A template is literal text mixed with {field} expressions and optional
// <...> segments:
//
//	scan{scan_id:05d}_{N:03d}<-T{e.data[cs700]:03.1f}>.tiff
//
// Field expressions name a variable, follow it through .attr and [key]
// lookups, and may carry a !s/!r conversion and a :format spec. When a
// field inside an optional segment is missing, the whole segment expands
// to the empty string; a missing field anywhere else fails the name.
//
// Files:
//   - template.go: grammar validation and segment parsing.
//   - field.go: field expression parsing and evaluation.
//   - format.go: the format spec mini-language.
//   - generator.go: per-record bindings, expansion and prefix joining.
//   - collision.go: per-pass tracking of records that share an output path.
package naming
