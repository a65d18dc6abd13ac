package export

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrBadSelection is returned for malformed or out-of-range selections.
var ErrBadSelection = errors.New("bad selection")

// Selection restricts a pass to a subset of record indices. The zero value
// selects every record.
//
// Accepted forms:
//
//	""  or "all"      every record
//	"3"  "0,2,-1"     explicit indices; negative counts from the end
//	"-3:"  "1:10:2"   start:stop[:step] slices, clamped to the record count
type Selection struct {
	raw     string
	indices []int
	slice   *sliceSpec
}

type sliceSpec struct {
	start, stop, step *int
}

// ParseSelection parses s.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return Selection{}, nil
	}
	sel := Selection{raw: s}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return Selection{}, fmt.Errorf("%w: %q has too many ':'", ErrBadSelection, s)
		}
		var sp sliceSpec
		fields := []**int{&sp.start, &sp.stop, &sp.step}
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, err := strconv.Atoi(p)
			if err != nil {
				return Selection{}, fmt.Errorf("%w: %q: %q is not an integer", ErrBadSelection, s, p)
			}
			*fields[i] = &v
		}
		if sp.step != nil && *sp.step == 0 {
			return Selection{}, fmt.Errorf("%w: %q: slice step cannot be zero", ErrBadSelection, s)
		}
		sel.slice = &sp
		return sel, nil
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %q: %q is not an integer", ErrBadSelection, s, p)
		}
		sel.indices = append(sel.indices, v)
	}
	return sel, nil
}

// MustSelection is ParseSelection that panics on error.
func MustSelection(s string) Selection {
	sel, err := ParseSelection(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// All reports whether the selection covers every record.
func (s Selection) All() bool { return s.indices == nil && s.slice == nil }

func (s Selection) String() string {
	if s.All() {
		return "all"
	}
	return s.raw
}

// Indices resolves the selection against n records and returns the chosen
// indices in ascending order without duplicates.
func (s Selection) Indices(n int) ([]int, error) {
	switch {
	case s.slice != nil:
		return s.slice.resolve(n), nil
	case s.indices != nil:
		seen := make(map[int]bool, len(s.indices))
		out := make([]int, 0, len(s.indices))
		for _, i := range s.indices {
			j := i
			if j < 0 {
				j += n
			}
			if j < 0 || j >= n {
				return nil, fmt.Errorf("%w: index %d out of range for %d records", ErrBadSelection, i, n)
			}
			if !seen[j] {
				seen[j] = true
				out = append(out, j)
			}
		}
		sort.Ints(out)
		return out, nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out, nil
}

func (sp *sliceSpec) resolve(n int) []int {
	step := 1
	if sp.step != nil {
		step = *sp.step
	}
	bound := func(p *int, def, lo, hi int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += n
		}
		return min(max(v, lo), hi)
	}
	var out []int
	if step > 0 {
		start := bound(sp.start, 0, 0, n)
		stop := bound(sp.stop, n, 0, n)
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
		return out
	}
	start := bound(sp.start, n-1, -1, n-1)
	stop := bound(sp.stop, -1, -1, n-1)
	for i := start; i > stop; i += step {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
