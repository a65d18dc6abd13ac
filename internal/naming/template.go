package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTemplate is wrapped by every template grammar failure.
var ErrInvalidTemplate = errors.New("invalid template")

var reHasN = regexp.MustCompile(`\{N\b`)

// Segment is a run of literal text and field expressions. Optional
// segments come from a <...> region and expand to "" when a field they
// reference is missing.
type Segment struct {
	Text     string
	Optional bool

	parts []part
}

// part is either literal text or a parsed field expression.
type part struct {
	text  string
	field *fieldExpr
}

// Template is a validated naming template with its segments parsed once.
// The zero value is not usable; construct with NewTemplate.
type Template struct {
	raw      string
	segments []Segment
}

// NewTemplate validates t and parses it into segments.
func NewTemplate(t string) (*Template, error) {
	segs, err := Parse(t)
	if err != nil {
		return nil, err
	}
	return &Template{raw: t, segments: segs}, nil
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Segments returns a copy of the parsed segments.
func (t *Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidTemplate}, args...)...)
}

// Validate reports whether t obeys the template grammar: it must reference
// {N}, its braces must pair up into flat field expressions, and outside
// those expressions the '<' '>' markers must balance and alternate.
func Validate(t string) error {
	_, err := validate(t)
	return err
}

func validate(t string) ([]part, error) {
	if !reHasN.MatchString(t) {
		return nil, invalid("template must include {N}")
	}
	pieces, err := splitFields(t)
	if err != nil {
		return nil, err
	}
	var lit strings.Builder
	for _, p := range pieces {
		if p.field == nil {
			lit.WriteString(p.text)
		}
	}
	bare := lit.String()
	if strings.Count(bare, "<") != strings.Count(bare, ">") {
		return nil, invalid("unbalanced segment markers '<', '>'")
	}
	open := false
	for _, r := range bare {
		switch r {
		case '<':
			if open {
				return nil, invalid("nested or misordered segment markers '<', '>'")
			}
			open = true
		case '>':
			if !open {
				return nil, invalid("nested or misordered segment markers '<', '>'")
			}
			open = false
		}
	}
	return pieces, nil
}

// splitFields cuts t into alternating literal and {field} pieces.
func splitFields(t string) ([]part, error) {
	var out []part
	rest := t
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if cl := strings.IndexByte(rest, '}'); cl >= 0 && (open < 0 || cl < open) {
			return nil, invalid("unbalanced field braces at %q", rest[cl:])
		}
		if open < 0 {
			out = append(out, part{text: rest})
			break
		}
		if open > 0 {
			out = append(out, part{text: rest[:open]})
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, invalid("unbalanced field braces at %q", rest[open:])
		}
		raw := rest[open : open+end+1]
		inner := raw[1 : len(raw)-1]
		if strings.ContainsRune(inner, '{') {
			return nil, invalid("nested field braces in %q", raw)
		}
		fe, err := parseField(inner)
		if err != nil {
			return nil, invalid("field %s: %v", raw, err)
		}
		out = append(out, part{text: raw, field: fe})
		rest = rest[open+end+1:]
	}
	return out, nil
}

// Parse validates t and splits it at the optional-segment markers.
// Segments alternate mandatory/optional starting with mandatory; segments
// with empty text are dropped.
func Parse(t string) ([]Segment, error) {
	pieces, err := validate(t)
	if err != nil {
		return nil, err
	}
	var (
		out      []Segment
		cur      Segment
		optional bool
	)
	closeSeg := func() {
		cur.Optional = optional
		if cur.Text != "" {
			out = append(out, cur)
		}
		cur = Segment{}
		optional = !optional
	}
	for _, p := range pieces {
		if p.field != nil {
			cur.Text += p.text
			cur.parts = append(cur.parts, p)
			continue
		}
		text := p.text
		for {
			delim := "<"
			if optional {
				delim = ">"
			}
			before, after, found := strings.Cut(text, delim)
			if before != "" {
				cur.Text += before
				cur.parts = append(cur.parts, part{text: before})
			}
			if !found {
				break
			}
			closeSeg()
			text = after
		}
	}
	closeSeg()
	return out, nil
}
