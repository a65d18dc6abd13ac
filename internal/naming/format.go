package naming

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zclconf/go-cty/cty"
)

// formatSpec is the parsed "[[fill]align][sign][#][0][width][,|_][.precision][type]"
// mini-language used after ':' in a field expression.
type formatSpec struct {
	empty    bool
	fill     rune
	align    byte
	sign     byte
	alt      bool
	zero     bool
	width    int
	grouping byte
	prec     int
	typ      byte
}

var parsedEmptySpec = formatSpec{empty: true, prec: -1}

const (
	intTypes   = "dnxXob"
	floatTypes = "fFeEgG%"
)

func isAlign(r rune) bool { return r == '<' || r == '>' || r == '=' || r == '^' }

func parseSpec(s string) (formatSpec, error) {
	fs := formatSpec{prec: -1, empty: s == ""}
	if s == "" {
		return fs, nil
	}
	r0, n0 := utf8.DecodeRuneInString(s)
	if r1, n1 := utf8.DecodeRuneInString(s[n0:]); n0 < len(s) && isAlign(r1) {
		fs.fill, fs.align = r0, byte(r1)
		s = s[n0+n1:]
	} else if isAlign(r0) {
		fs.align = byte(r0)
		s = s[n0:]
	}
	if s != "" && strings.IndexByte("+- ", s[0]) >= 0 {
		fs.sign = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == '#' {
		fs.alt = true
		s = s[1:]
	}
	if s != "" && s[0] == '0' {
		fs.zero = true
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		fs.width, _ = strconv.Atoi(s[:i])
		s = s[i:]
	}
	if s != "" && (s[0] == ',' || s[0] == '_') {
		fs.grouping = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == '.' {
		j := 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == 1 {
			return fs, errors.New("format specifier missing precision")
		}
		fs.prec, _ = strconv.Atoi(s[1:j])
		s = s[j:]
	}
	if s != "" {
		if len(s) > 1 || strings.IndexByte(intTypes+floatTypes+"s", s[0]) < 0 {
			return fs, fmt.Errorf("invalid format specifier %q", s)
		}
		fs.typ = s[0]
	}
	return fs, nil
}

// formatValue renders a non-null value under conv and spec.
func formatValue(v cty.Value, conv byte, spec formatSpec) (string, error) {
	if conv != 0 {
		s, err := strValue(v, conv == 'r')
		if err != nil {
			return "", err
		}
		return formatString(s, spec)
	}
	switch v.Type() {
	case cty.String:
		return formatString(v.AsString(), spec)
	case cty.Number:
		return formatNumber(v.AsBigFloat(), spec)
	case cty.Bool:
		if spec.empty {
			return pyBool(v.True()), nil
		}
		n := new(big.Float)
		if v.True() {
			n.SetInt64(1)
		}
		return formatNumber(n, spec)
	}
	return "", fmt.Errorf("cannot format %s value", v.Type().FriendlyName())
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func strValue(v cty.Value, repr bool) (string, error) {
	switch v.Type() {
	case cty.String:
		if repr {
			return "'" + strings.ReplaceAll(v.AsString(), "'", `\'`) + "'", nil
		}
		return v.AsString(), nil
	case cty.Number:
		return plainNumber(v.AsBigFloat()), nil
	case cty.Bool:
		return pyBool(v.True()), nil
	}
	return "", fmt.Errorf("cannot convert %s value", v.Type().FriendlyName())
}

func formatString(s string, spec formatSpec) (string, error) {
	if spec.typ != 0 && spec.typ != 's' {
		return "", fmt.Errorf("unknown format code '%c' for string", spec.typ)
	}
	if spec.sign != 0 {
		return "", errors.New("sign not allowed in string format specifier")
	}
	if spec.align == '=' {
		return "", errors.New("'=' alignment not allowed in string format specifier")
	}
	if spec.prec >= 0 && utf8.RuneCountInString(s) > spec.prec {
		s = string([]rune(s)[:spec.prec])
	}
	return pad("", s, spec, '<'), nil
}

// plainNumber renders a number the way an untyped field would: integers
// without a fraction, everything else in shortest round-trip form.
func plainNumber(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String()
	}
	x, _ := f.Float64()
	if a := math.Abs(x); a >= 1e16 || a < 1e-4 {
		return strconv.FormatFloat(x, 'e', -1, 64)
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func formatNumber(f *big.Float, spec formatSpec) (string, error) {
	neg := f.Sign() < 0
	abs := new(big.Float).Abs(f)
	var body, prefix string

	switch {
	case spec.typ == 's':
		return "", errors.New("unknown format code 's' for number")
	case spec.typ != 0 && strings.IndexByte(intTypes, spec.typ) >= 0:
		if !f.IsInt() {
			return "", fmt.Errorf("format code '%c' requires an integer", spec.typ)
		}
		if spec.prec >= 0 {
			return "", errors.New("precision not allowed in integer format specifier")
		}
		i, _ := abs.Int(nil)
		switch spec.typ {
		case 'x':
			body, prefix = i.Text(16), "0x"
		case 'X':
			body, prefix = strings.ToUpper(i.Text(16)), "0X"
		case 'o':
			body, prefix = i.Text(8), "0o"
		case 'b':
			body, prefix = i.Text(2), "0b"
		default:
			body = i.String()
		}
		if !spec.alt {
			prefix = ""
		}
		body = group(body, spec.grouping, spec.typ)
	case spec.typ != 0:
		x, _ := abs.Float64()
		prec := spec.prec
		if prec < 0 {
			prec = 6
		}
		switch spec.typ {
		case 'f', 'F':
			body = strconv.FormatFloat(x, 'f', prec, 64)
		case 'e', 'E':
			body = strconv.FormatFloat(x, 'e', prec, 64)
		case 'g', 'G':
			if prec == 0 {
				prec = 1
			}
			body = strconv.FormatFloat(x, 'g', prec, 64)
		case '%':
			body = strconv.FormatFloat(x*100, 'f', prec, 64) + "%"
		}
		if spec.typ == 'F' || spec.typ == 'E' || spec.typ == 'G' {
			body = strings.ToUpper(body)
		}
		body = groupFloat(body, spec.grouping)
	default:
		if spec.prec >= 0 {
			x, _ := abs.Float64()
			body = strconv.FormatFloat(x, 'g', max(spec.prec, 1), 64)
		} else {
			body = plainNumber(abs)
			if f.IsInt() {
				body = group(body, spec.grouping, 'd')
			} else {
				body = groupFloat(body, spec.grouping)
			}
		}
	}

	sign := ""
	switch {
	case neg:
		sign = "-"
	case spec.sign == '+':
		sign = "+"
	case spec.sign == ' ':
		sign = " "
	}
	return pad(sign+prefix, body, spec, '>'), nil
}

// group inserts sep between digit groups: 3 for decimal, 4 otherwise.
func group(digits string, sep, typ byte) string {
	if sep == 0 {
		return digits
	}
	size := 3
	if typ != 'd' && typ != 'n' {
		size = 4
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%size == 0 {
			b.WriteByte(sep)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func groupFloat(body string, sep byte) string {
	if sep == 0 {
		return body
	}
	end := strings.IndexFunc(body, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(body)
	}
	return group(body[:end], sep, 'd') + body[end:]
}

// pad applies width, fill and alignment. lead is the sign and base prefix,
// which '=' alignment keeps in front of the padding.
func pad(lead, body string, spec formatSpec, defAlign byte) string {
	n := utf8.RuneCountInString(lead) + utf8.RuneCountInString(body)
	if spec.width <= n {
		return lead + body
	}
	fill, align := spec.fill, spec.align
	if align == 0 {
		align = defAlign
		if spec.zero {
			if fill == 0 {
				fill = '0'
			}
			if defAlign == '>' {
				align = '='
			}
		}
	}
	if fill == 0 {
		fill = ' '
	}
	gap := spec.width - n
	fs := string(fill)
	switch align {
	case '<':
		return lead + body + strings.Repeat(fs, gap)
	case '^':
		left := gap / 2
		return strings.Repeat(fs, left) + lead + body + strings.Repeat(fs, gap-left)
	case '=':
		return lead + strings.Repeat(fs, gap) + body
	}
	return strings.Repeat(fs, gap) + lead + body
}
