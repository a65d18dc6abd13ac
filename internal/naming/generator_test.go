package naming

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"

	"github.com/backmassage/tiffexport/internal/record"
)

// header builds a run with the given start document and one event per data
// object.
func header(t *testing.T, start cty.Value, data ...cty.Value) *record.Header {
	t.Helper()
	events := make([]cty.Value, len(data))
	for i, d := range data {
		events[i] = cty.ObjectVal(map[string]cty.Value{
			"seq_num": cty.NumberIntVal(int64(i + 1)),
			"time":    cty.NumberFloatVal(1.7e9 + float64(i)),
			"data":    d,
		})
	}
	doc := map[string]cty.Value{"start": start}
	if len(events) > 0 {
		doc["events"] = cty.TupleVal(events)
	}
	h, err := record.FromValue(cty.ObjectVal(doc))
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	return h
}

func scanStart(id int64) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"scan_id": cty.NumberIntVal(id),
		"uid":     cty.StringVal("3f2a"),
	})
}

func TestNames_ScanAndSequence(t *testing.T) {
	h := header(t, scanStart(7), cty.EmptyObjectVal, cty.EmptyObjectVal)
	n, err := New("scan{scan_id:05d}_{N:03d}.tiff", "/out")
	if err != nil {
		t.Fatal(err)
	}
	got, err := n.Names(h)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/out/scan00007_000.tiff", "/out/scan00007_001.tiff"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestName_OptionalSegment(t *testing.T) {
	withTemp := cty.ObjectVal(map[string]cty.Value{"cs700": cty.NumberFloatVal(300)})
	h := header(t, scanStart(7), cty.EmptyObjectVal, withTemp)

	n, err := New(DefaultTemplate, "")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		index int
		want  string
	}{
		{0, "scan00007_000.tiff"},
		{1, "scan00007_001-T300.0.tiff"},
	}
	for _, tt := range tests {
		got, err := n.Name(h, tt.index)
		if err != nil {
			t.Fatalf("Name(%d): %v", tt.index, err)
		}
		if got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestName_MissingAttributeInOptional(t *testing.T) {
	h := header(t, scanStart(1), cty.EmptyObjectVal)
	h.Records[0].Value = cty.ObjectVal(map[string]cty.Value{"seq_num": cty.NumberIntVal(1)})

	n, err := New("img{N:03d}<-T{e.temp:03.1f}>.tiff", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := n.Name(h, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "img000.tiff" {
		t.Errorf("Name = %q, want %q", got, "img000.tiff")
	}
}

func TestName_Errors(t *testing.T) {
	data := cty.ObjectVal(map[string]cty.Value{"label": cty.StringVal("abc")})
	h := header(t, scanStart(1), data)

	tests := []struct {
		name     string
		template string
		wantErr  error
	}{
		{"missing mandatory attribute", "img{N}_{e.missing}.tiff", ErrMissingField},
		{"missing mandatory variable", "img{N}_{nope}.tiff", ErrMissingField},
		{"missing stop document", "img{N}_{stop.time}.tiff", ErrMissingField},
		{"bad format in optional", "img{N}<_{e.data[label]:d}>.tiff", ErrBadFormat},
		{"bad format in mandatory", "img{N:s}.tiff", ErrBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.template, "")
			if err != nil {
				t.Fatal(err)
			}
			_, err = n.Name(h, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Name error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNaming_SetTemplateKeepsPreviousOnError(t *testing.T) {
	n, err := New("a{N}", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetTemplate("no-sequence"); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("SetTemplate error = %v, want ErrInvalidTemplate", err)
	}
	if n.Template() != "a{N}" {
		t.Errorf("Template() = %q, want %q", n.Template(), "a{N}")
	}
	if err := n.SetTemplate("b{N}"); err != nil {
		t.Fatal(err)
	}
	if n.Template() != "b{N}" {
		t.Errorf("Template() = %q, want %q", n.Template(), "b{N}")
	}
	if n.Prefix() != "" {
		t.Errorf("Prefix() = %q, want empty", n.Prefix())
	}
}

func TestJoinPrefix(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "a.tiff", "a.tiff"},
		{"/out", "a.tiff", "/out/a.tiff"},
		{"/out", "sub/a.tiff", "/out/sub/a.tiff"},
		{"/out", "/abs/a.tiff", "/abs/a.tiff"},
		{"out/", "a.tiff", "out/a.tiff"},
	}
	for _, tt := range tests {
		if got := JoinPrefix(tt.prefix, tt.name); got != tt.want {
			t.Errorf("JoinPrefix(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestFieldEval(t *testing.T) {
	b := Binding{
		"i":    cty.NumberIntVal(42),
		"neg":  cty.NumberIntVal(-42),
		"big":  cty.NumberIntVal(1234567),
		"pi":   cty.NumberFloatVal(3.14159),
		"f":    cty.NumberFloatVal(2.5),
		"q":    cty.NumberFloatVal(0.25),
		"s":    cty.StringVal("ab"),
		"long": cty.StringVal("abcdef"),
		"yes":  cty.True,
		"e": cty.ObjectVal(map[string]cty.Value{
			"nil":  cty.NullVal(cty.String),
			"list": cty.TupleVal([]cty.Value{cty.StringVal("x"), cty.StringVal("y")}),
			"m":    cty.MapVal(map[string]cty.Value{"k": cty.StringVal("v")}),
		}),
	}
	tests := []struct {
		expr     string
		want     string
		wantKind Kind
	}{
		{"i", "42", OK},
		{"i:05d", "00042", OK},
		{"neg:05d", "-0042", OK},
		{"i:+d", "+42", OK},
		{"big:,d", "1,234,567", OK},
		{"big:_d", "1_234_567", OK},
		{"i:x", "2a", OK},
		{"i:#x", "0x2a", OK},
		{"i:b", "101010", OK},
		{"pi:.2f", "3.14", OK},
		{"pi:08.3f", "0003.142", OK},
		{"pi:e", "3.141590e+00", OK},
		{"q:.1%", "25.0%", OK},
		{"f", "2.5", OK},
		{"s:>6", "    ab", OK},
		{"s:<6", "ab    ", OK},
		{"s:^6", "  ab  ", OK},
		{"s:*^7", "**ab***", OK},
		{"s:05", "ab000", OK},
		{"long:.3", "abc", OK},
		{"s!r", "'ab'", OK},
		{"i!s:>4", "  42", OK},
		{"yes", "True", OK},
		{"yes:d", "1", OK},
		{"e.list[1]", "y", OK},
		{"e.m[k]", "v", OK},
		{"e.m.k", "v", OK},
		{"nope", "", MissingVariable},
		{"e.absent", "", MissingAttribute},
		{"e.nil", "", MissingAttribute},
		{"e.nil.deeper", "", MissingAttribute},
		{"e.list[5]", "", MissingKey},
		{"e.m[z]", "", MissingKey},
		{"e.list[x]", "", BadFormat},
		{"s[0]", "", BadFormat},
		{"f:d", "", BadFormat},
		{"i:s", "", BadFormat},
		{"s:+", "", BadFormat},
		{"s:d", "", BadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fe, err := parseField(tt.expr)
			if err != nil {
				t.Fatalf("parseField(%q): %v", tt.expr, err)
			}
			got := fe.eval(b)
			if got.Kind != tt.wantKind {
				t.Fatalf("eval(%q) kind = %v (%s), want %v", tt.expr, got.Kind, got.Detail, tt.wantKind)
			}
			if got.Text != tt.want {
				t.Errorf("eval(%q) = %q, want %q", tt.expr, got.Text, tt.want)
			}
		})
	}
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	if owner, collided := c.Claim(0, "/out/a.tiff"); collided || owner != 0 {
		t.Fatalf("first claim = (%d, %v), want (0, false)", owner, collided)
	}
	if _, collided := c.Claim(0, "/out/a.tiff"); collided {
		t.Error("re-claim by the same record reported a collision")
	}
	if owner, collided := c.Claim(3, "/out/a.tiff"); !collided || owner != 0 {
		t.Errorf("second claim = (%d, %v), want (0, true)", owner, collided)
	}
	if owner, collided := c.Claim(3, "/out/b.tiff"); collided || owner != 3 {
		t.Errorf("claim of another path = (%d, %v), want (3, false)", owner, collided)
	}
}
