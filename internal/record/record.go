// Package record models a run header and its ordered events as dynamic
// cty values, so template field expressions can reach any nested field.
package record

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrMalformed is returned when a record document does not have the
// expected start/events shape.
var ErrMalformed = errors.New("malformed record document")

// Header is one run: its start and stop documents plus the events it
// produced, in acquisition order.
type Header struct {
	Value   cty.Value // whole document
	Start   cty.Value
	Stop    cty.Value // null when the run has no stop document
	Records []Record

	// BaseDir resolves relative payload paths; empty means the working directory.
	BaseDir string
}

// Record is a single event.
type Record struct {
	Index int
	Time  time.Time // zero when the event carries no timestamp
	Value cty.Value
}

// Source yields a header with its records in stable order.
type Source interface {
	Header(ctx context.Context) (*Header, error)
}

// JSONFile is a Source reading one JSON document of the form
//
//	{"start": {...}, "stop": {...}, "events": [{"time": 1.5e9, "data": {...}}, ...]}
type JSONFile struct {
	Path string
}

var _ Source = JSONFile{}

// Header reads and decodes the file.
func (j JSONFile) Header(ctx context.Context) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, err
	}
	ty, err := ctyjson.ImpliedType(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j.Path, err)
	}
	v, err := ctyjson.Unmarshal(buf, ty)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j.Path, err)
	}
	h, err := FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j.Path, err)
	}
	h.BaseDir = filepath.Dir(j.Path)
	return h, nil
}

// FromValue builds a Header from a decoded document.
func FromValue(doc cty.Value) (*Header, error) {
	if doc.IsNull() || !doc.IsKnown() || !IsObjectLike(doc.Type()) {
		return nil, fmt.Errorf("%w: document must be an object", ErrMalformed)
	}
	start, ok := Attr(doc, "start")
	if !ok || !IsObjectLike(start.Type()) {
		return nil, fmt.Errorf("%w: missing start document", ErrMalformed)
	}
	stop, ok := Attr(doc, "stop")
	if !ok {
		stop = cty.NullVal(cty.DynamicPseudoType)
	}
	h := &Header{Value: doc, Start: start, Stop: stop}

	events, ok := Attr(doc, "events")
	if !ok || events.IsNull() {
		return h, nil
	}
	ety := events.Type()
	if !ety.IsTupleType() && !ety.IsListType() {
		return nil, fmt.Errorf("%w: events must be an array", ErrMalformed)
	}
	i := 0
	for it := events.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		if !IsObjectLike(ev.Type()) {
			return nil, fmt.Errorf("%w: event %d is not an object", ErrMalformed, i)
		}
		rec := Record{Index: i, Value: ev}
		if tv, ok := Attr(ev, "time"); ok && !tv.IsNull() {
			if tv.Type() != cty.Number {
				return nil, fmt.Errorf("%w: event %d time is not a number", ErrMalformed, i)
			}
			f, _ := tv.AsBigFloat().Float64()
			rec.Time = FromSeconds(f)
		}
		h.Records = append(h.Records, rec)
	}
	return h, nil
}

// FromSeconds converts a float epoch timestamp to a time.Time.
func FromSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}

// IsObjectLike reports whether values of ty support attribute lookup.
func IsObjectLike(ty cty.Type) bool {
	return ty.IsObjectType() || ty.IsMapType()
}

// Attr returns v.name for object and map values. Unknown values and
// missing attributes report false.
func Attr(v cty.Value, name string) (cty.Value, bool) {
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, false
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		return v.GetAttr(name), true
	case ty.IsMapType():
		key := cty.StringVal(name)
		if !v.HasIndex(key).True() {
			return cty.NilVal, false
		}
		return v.Index(key), true
	}
	return cty.NilVal, false
}
