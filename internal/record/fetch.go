package record

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/image/tiff"
)

// ErrNoImage is returned when an event carries no usable image payload.
var ErrNoImage = errors.New("no image payload")

// DefaultField is the detector field read when none is configured.
const DefaultField = "pe1_image_lightfield"

// ImageFetcher returns the image payload aligned with h.Records[i].
type ImageFetcher interface {
	FetchImage(h *Header, i int) (image.Image, error)
}

// FetcherFunc adapts a function to ImageFetcher.
type FetcherFunc func(h *Header, i int) (image.Image, error)

// FetchImage calls f.
func (f FetcherFunc) FetchImage(h *Header, i int) (image.Image, error) { return f(h, i) }

// FieldFetcher reads e.data[Field]. A 2-D numeric array becomes a 16-bit
// grayscale image; a string is taken as the path of a TIFF file holding
// the frame.
type FieldFetcher struct {
	Field string
}

var _ ImageFetcher = FieldFetcher{}

// FetchImage decodes the payload of record i.
func (f FieldFetcher) FetchImage(h *Header, i int) (image.Image, error) {
	if i < 0 || i >= len(h.Records) {
		return nil, fmt.Errorf("record %d: %w", i, ErrNoImage)
	}
	field := f.Field
	if field == "" {
		field = DefaultField
	}
	data, ok := Attr(h.Records[i].Value, "data")
	if !ok {
		return nil, fmt.Errorf("record %d has no data: %w", i, ErrNoImage)
	}
	v, ok := Attr(data, field)
	if !ok || v.IsNull() {
		return nil, fmt.Errorf("record %d has no field %q: %w", i, field, ErrNoImage)
	}
	if v.Type() == cty.String {
		return decodeFile(h.BaseDir, v.AsString())
	}
	return grayFromRows(v)
}

func decodeFile(baseDir, p string) (image.Image, error) {
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	fh, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	img, err := tiff.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return img, nil
}

// grayFromRows converts a sequence of equal-length numeric rows into a
// Gray16 image, clamping samples to the 16-bit range.
func grayFromRows(v cty.Value) (image.Image, error) {
	if !isSequence(v.Type()) || v.LengthInt() == 0 {
		return nil, fmt.Errorf("image must be a non-empty 2-D array: %w", ErrNoImage)
	}
	var rows [][]float64
	for it := v.ElementIterator(); it.Next(); {
		_, row := it.Element()
		if !isSequence(row.Type()) {
			return nil, fmt.Errorf("image rows must be arrays: %w", ErrNoImage)
		}
		var samples []float64
		for rit := row.ElementIterator(); rit.Next(); {
			_, s := rit.Element()
			if s.IsNull() || s.Type() != cty.Number {
				return nil, fmt.Errorf("image samples must be numbers: %w", ErrNoImage)
			}
			f, _ := s.AsBigFloat().Float64()
			samples = append(samples, f)
		}
		if len(rows) > 0 && len(samples) != len(rows[0]) {
			return nil, fmt.Errorf("ragged image rows: %w", ErrNoImage)
		}
		rows = append(rows, samples)
	}
	w, hgt := len(rows[0]), len(rows)
	if w == 0 {
		return nil, fmt.Errorf("image has zero width: %w", ErrNoImage)
	}
	img := image.NewGray16(image.Rect(0, 0, w, hgt))
	for y, row := range rows {
		for x, s := range row {
			img.SetGray16(x, y, color.Gray16{Y: clamp16(s)})
		}
	}
	return img, nil
}

func clamp16(f float64) uint16 {
	switch {
	case f <= 0 || f != f:
		return 0
	case f >= 65535:
		return 65535
	}
	return uint16(f + 0.5)
}

func isSequence(ty cty.Type) bool {
	return ty.IsTupleType() || ty.IsListType()
}
