package naming

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantMsg  string // empty means valid
	}{
		{"default", DefaultTemplate, ""},
		{"plain N", "img{N}.tiff", ""},
		{"N with spec", "img{N:03d}.tiff", ""},
		{"N attribute", "img{N.real}.tiff", ""},
		{"optional segment", "img{N:03d}<-T{e.temp:03.1f}>.tiff", ""},
		{"align spec inside field", "img{N:>5}<{e.x:<4}>.tiff", ""},
		{"missing N", "img{scan_id}.tiff", "template must include {N}"},
		{"N prefix of longer name", "img{Nx}.tiff", "template must include {N}"},
		{"extra open marker", "img{N}<-T.tiff", "unbalanced segment markers"},
		{"extra close marker", "img{N}-T>.tiff", "unbalanced segment markers"},
		{"nested markers", "img{N}<<a>b>.tiff", "nested or misordered"},
		{"close before open", "img{N}>a<.tiff", "nested or misordered"},
		{"unclosed brace", "img{N.tiff", "unbalanced field braces"},
		{"unclosed field", "img{N}{e.x.tiff", "unbalanced field braces"},
		{"stray close brace", "img{N}}.tiff", "unbalanced field braces"},
		{"empty field", "img{N}{}.tiff", "empty field name"},
		{"bad spec", "img{N:03q}.tiff", "invalid format specifier"},
		{"bad index", "img{N}{e[x}.tiff", "missing ']'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.template)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tt.template, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error containing %q", tt.template, tt.wantMsg)
			}
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Validate(%q) error %v does not wrap ErrInvalidTemplate", tt.template, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate(%q) = %v, want message containing %q", tt.template, err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_UnbalancingValidTemplatesFails(t *testing.T) {
	valid := []string{
		DefaultTemplate,
		"img{N:03d}<-T{e.temp:03.1f}>.tiff",
		"<pre{e.a}_>{N}<_{e.b}>.tif",
		"a<b>c<d>e{N}",
	}
	for _, tpl := range valid {
		if err := Validate(tpl); err != nil {
			t.Fatalf("precondition: %q invalid: %v", tpl, err)
		}
		for i, r := range tpl {
			if r != '<' && r != '>' {
				continue
			}
			if inField(tpl, i) {
				continue
			}
			dropped := tpl[:i] + tpl[i+1:]
			if err := Validate(dropped); err == nil {
				t.Errorf("Validate(%q) = nil after dropping marker %d of %q", dropped, i, tpl)
			}
			doubled := tpl[:i] + string(r) + tpl[i:]
			if err := Validate(doubled); err == nil {
				t.Errorf("Validate(%q) = nil after doubling marker %d of %q", doubled, i, tpl)
			}
		}
	}
}

// inField reports whether byte offset i of s falls inside a {...} field.
func inField(s string, i int) bool {
	open := strings.LastIndexByte(s[:i], '{')
	if open < 0 {
		return false
	}
	return !strings.ContainsRune(s[open:i], '}')
}

func TestParse_Segments(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []Segment
	}{
		{
			name:     "no optional",
			template: "scan{scan_id:05d}_{N:03d}.tiff",
			want:     []Segment{{Text: "scan{scan_id:05d}_{N:03d}.tiff"}},
		},
		{
			name:     "default template",
			template: DefaultTemplate,
			want: []Segment{
				{Text: "scan{scan_id:05d}_{N:03d}"},
				{Text: "-T{e.data[cs700]:03.1f}", Optional: true},
				{Text: ".tiff"},
			},
		},
		{
			name:     "leading optional drops empty mandatory",
			template: "<{e.a}_>{N}",
			want: []Segment{
				{Text: "{e.a}_", Optional: true},
				{Text: "{N}"},
			},
		},
		{
			name:     "empty optional dropped",
			template: "a<>{N}<b>",
			want: []Segment{
				{Text: "a"},
				{Text: "{N}"},
				{Text: "b", Optional: true},
			},
		},
		{
			name:     "markers inside field spec are not boundaries",
			template: "{N:>4}<{e.x:<3}>",
			want: []Segment{
				{Text: "{N:>4}"},
				{Text: "{e.x:<3}", Optional: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.template)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.template, err)
			}
			opt := cmp.Comparer(func(a, b Segment) bool {
				return a.Text == b.Text && a.Optional == b.Optional
			})
			if diff := cmp.Diff(tt.want, got, opt); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.template, diff)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	templates := []string{
		DefaultTemplate,
		"img{N:03d}<-T{e.temp:03.1f}>.tiff",
		"<pre{e.a}_>{N}<_{e.b}>.tif",
		"{h.start.uid}/{N:04d}<_{e.data[det]!s:>6}>.tiff",
	}
	for _, tpl := range templates {
		segs, err := Parse(tpl)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tpl, err)
		}
		var b strings.Builder
		for _, s := range segs {
			b.WriteString(s.Text)
		}
		if got, want := b.String(), stripMarkers(tpl); got != want {
			t.Errorf("reassembled %q = %q, want %q", tpl, got, want)
		}
	}
}

// stripMarkers removes '<' and '>' outside field expressions.
func stripMarkers(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
		case depth == 0 && (r == '<' || r == '>'):
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func TestNewTemplate_Immutable(t *testing.T) {
	tpl, err := NewTemplate(DefaultTemplate)
	if err != nil {
		t.Fatal(err)
	}
	segs := tpl.Segments()
	segs[0].Text = "changed"
	if tpl.Segments()[0].Text == "changed" {
		t.Error("Segments() exposes internal state")
	}
	if tpl.String() != DefaultTemplate {
		t.Errorf("String() = %q, want %q", tpl.String(), DefaultTemplate)
	}
}
