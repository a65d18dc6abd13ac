package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/backmassage/tiffexport/internal/record"
)

// Kind classifies the outcome of evaluating one field expression.
type Kind int

const (
	OK Kind = iota
	MissingVariable
	MissingAttribute
	MissingKey
	BadFormat
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case MissingVariable:
		return "missing variable"
	case MissingAttribute:
		return "missing attribute"
	case MissingKey:
		return "missing key"
	case BadFormat:
		return "bad format"
	}
	return "unknown"
}

// Missing reports whether k is one of the failures an optional segment
// absorbs.
func (k Kind) Missing() bool {
	return k == MissingVariable || k == MissingAttribute || k == MissingKey
}

// Expansion is the result of evaluating a field expression: Text on
// success, otherwise a failure Kind and a human-readable Detail.
type Expansion struct {
	Text   string
	Kind   Kind
	Detail string
}

func failed(k Kind, format string, args ...any) Expansion {
	return Expansion{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

// Binding maps template variable names to values for one record.
type Binding map[string]cty.Value

// fieldExpr is a parsed "name.attr[key]!conv:spec" expression.
type fieldExpr struct {
	src   string
	name  string
	steps []step
	conv  byte
	spec  formatSpec
}

type step struct {
	attr  bool
	key   string
	index int
	isInt bool
}

// parseField parses the inside of a {...} field.
func parseField(src string) (*fieldExpr, error) {
	fe := &fieldExpr{src: src}
	// The field name ends at the first '!' or ':' outside brackets.
	end, depth := len(src), 0
scan:
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '!', ':':
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	name, rest := src[:end], src[end:]
	if err := fe.parseName(name); err != nil {
		return nil, err
	}
	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 || (rest[1] != 's' && rest[1] != 'r') {
			return nil, errors.New("conversion must be !s or !r")
		}
		fe.conv = rest[1]
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return nil, errors.New("expected ':' after conversion")
		}
	}
	if strings.HasPrefix(rest, ":") {
		spec, err := parseSpec(rest[1:])
		if err != nil {
			return nil, err
		}
		fe.spec = spec
	} else {
		fe.spec = parsedEmptySpec
	}
	return fe, nil
}

func (fe *fieldExpr) parseName(s string) error {
	i := strings.IndexAny(s, ".[")
	if i < 0 {
		i = len(s)
	}
	fe.name = s[:i]
	if fe.name == "" {
		return errors.New("empty field name")
	}
	s = s[i:]
	for s != "" {
		switch s[0] {
		case '.':
			s = s[1:]
			j := strings.IndexAny(s, ".[")
			if j < 0 {
				j = len(s)
			}
			if j == 0 {
				return errors.New("empty attribute")
			}
			fe.steps = append(fe.steps, step{attr: true, key: s[:j]})
			s = s[j:]
		case '[':
			j := strings.IndexByte(s, ']')
			if j < 0 {
				return errors.New("missing ']'")
			}
			key := s[1:j]
			if key == "" {
				return errors.New("empty index")
			}
			st := step{key: key}
			if n, err := strconv.Atoi(key); err == nil && n >= 0 && isDigits(key) {
				st.index, st.isInt = n, true
			}
			fe.steps = append(fe.steps, st)
			s = s[j+1:]
		default:
			return fmt.Errorf("unexpected %q after field name", s[0])
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// eval resolves the expression against b and formats the value.
func (fe *fieldExpr) eval(b Binding) Expansion {
	v, ok := b[fe.name]
	if !ok {
		return failed(MissingVariable, "%s: no variable %q", fe.src, fe.name)
	}
	last := MissingVariable
	for _, st := range fe.steps {
		if st.attr {
			last = MissingAttribute
			next, ok := record.Attr(v, st.key)
			if !ok {
				return failed(MissingAttribute, "%s: no attribute %q", fe.src, st.key)
			}
			v = next
			continue
		}
		last = MissingKey
		next, exp := index(v, st)
		if exp.Kind != OK {
			exp.Detail = fe.src + ": " + exp.Detail
			return exp
		}
		v = next
	}
	if v.IsNull() || !v.IsKnown() {
		return failed(last, "%s: value is null", fe.src)
	}
	text, err := formatValue(v, fe.conv, fe.spec)
	if err != nil {
		return failed(BadFormat, "%s: %v", fe.src, err)
	}
	return Expansion{Text: text}
}

func index(v cty.Value, st step) (cty.Value, Expansion) {
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, failed(MissingKey, "no key %q in null value", st.key)
	}
	ty := v.Type()
	switch {
	case ty.IsListType() || ty.IsTupleType():
		if !st.isInt {
			return cty.NilVal, failed(BadFormat, "sequence index %q is not an integer", st.key)
		}
		if st.index >= v.LengthInt() {
			return cty.NilVal, failed(MissingKey, "index %d out of range", st.index)
		}
		return v.Index(cty.NumberIntVal(int64(st.index))), Expansion{}
	case record.IsObjectLike(ty):
		next, ok := record.Attr(v, st.key)
		if !ok {
			return cty.NilVal, failed(MissingKey, "no key %q", st.key)
		}
		return next, Expansion{}
	}
	return cty.NilVal, failed(BadFormat, "%s value is not indexable", ty.FriendlyName())
}
