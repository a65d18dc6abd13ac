package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/backmassage/tiffexport/internal/record"
)

var (
	// ErrMissingField is wrapped when a mandatory segment references a
	// variable, attribute or key the record does not have.
	ErrMissingField = errors.New("missing field")
	// ErrBadFormat is wrapped when a value cannot be rendered with its
	// format spec. Optional segments do not absorb it.
	ErrBadFormat = errors.New("bad field format")
)

// DefaultTemplate names frames by scan id and sequence number and appends
// the cs700 temperature when the event recorded one.
const DefaultTemplate = "scan{scan_id:05d}_{N:03d}<-T{e.data[cs700]:03.1f}>.tiff"

// Expand renders segments against b. Missing fields inside optional
// segments drop that segment; anywhere else they fail the whole name.
func Expand(segments []Segment, b Binding) (string, error) {
	var sb strings.Builder
	for _, seg := range segments {
		s, err := expandSegment(seg, b)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func expandSegment(seg Segment, b Binding) (string, error) {
	var sb strings.Builder
	for _, p := range seg.parts {
		if p.field == nil {
			sb.WriteString(p.text)
			continue
		}
		exp := p.field.eval(b)
		switch {
		case exp.Kind == OK:
			sb.WriteString(exp.Text)
		case exp.Kind.Missing() && seg.Optional:
			return "", nil
		case exp.Kind.Missing():
			return "", fmt.Errorf("%w: %s", ErrMissingField, exp.Detail)
		default:
			return "", fmt.Errorf("%w: %s", ErrBadFormat, exp.Detail)
		}
	}
	return sb.String(), nil
}

// NewBinding builds the variables visible to record i of h:
//
//	h        the whole header document
//	e        the event
//	N        sequence number of the event within the header
//	start    h.start
//	stop     h.stop (null when the run has not stopped)
//	scan_id  h.start.scan_id
func NewBinding(h *record.Header, i int) Binding {
	b := Binding{
		"h":     h.Value,
		"e":     h.Records[i].Value,
		"N":     cty.NumberIntVal(int64(i)),
		"start": h.Start,
		"stop":  h.Stop,
	}
	if id, ok := record.Attr(h.Start, "scan_id"); ok {
		b["scan_id"] = id
	}
	return b
}

// Naming turns records into output paths from a template and a prefix
// directory. It is safe for concurrent use; the template may be swapped
// with SetTemplate.
type Naming struct {
	mu       sync.RWMutex
	template *Template
	prefix   string
}

// New validates template and returns a Naming that joins names onto prefix.
func New(template, prefix string) (*Naming, error) {
	t, err := NewTemplate(template)
	if err != nil {
		return nil, err
	}
	return &Naming{template: t, prefix: prefix}, nil
}

// Template returns the current template source.
func (n *Naming) Template() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.template.String()
}

// SetTemplate replaces the template. An invalid template leaves the
// previous one in place.
func (n *Naming) SetTemplate(t string) error {
	tpl, err := NewTemplate(t)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.template = tpl
	n.mu.Unlock()
	return nil
}

// Prefix returns the directory names are joined onto.
func (n *Naming) Prefix() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.prefix
}

func (n *Naming) String() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fmt.Sprintf("Naming(template=%q, prefix=%q)", n.template.String(), n.prefix)
}

// Name returns the output path for record i of h.
func (n *Naming) Name(h *record.Header, i int) (string, error) {
	n.mu.RLock()
	segs, prefix := n.template.segments, n.prefix
	n.mu.RUnlock()
	return name(segs, prefix, h, i)
}

// Names returns one output path per record, in record order.
func (n *Naming) Names(h *record.Header) ([]string, error) {
	n.mu.RLock()
	segs, prefix := n.template.segments, n.prefix
	n.mu.RUnlock()
	out := make([]string, len(h.Records))
	for i := range h.Records {
		p, err := name(segs, prefix, h, i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func name(segs []Segment, prefix string, h *record.Header, i int) (string, error) {
	s, err := Expand(segs, NewBinding(h, i))
	if err != nil {
		return "", fmt.Errorf("record %d: %w", i, err)
	}
	return JoinPrefix(prefix, s), nil
}

// JoinPrefix joins name onto prefix; an absolute name is returned as-is.
func JoinPrefix(prefix, name string) string {
	if filepath.IsAbs(name) || prefix == "" {
		return name
	}
	return filepath.Join(prefix, name)
}
