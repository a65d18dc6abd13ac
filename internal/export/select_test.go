package export

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSelection_Indices(t *testing.T) {
	tests := []struct {
		sel  string
		n    int
		want []int
	}{
		{"", 4, []int{0, 1, 2, 3}},
		{"all", 3, []int{0, 1, 2}},
		{"2", 4, []int{2}},
		{"0,2,2,1", 4, []int{0, 1, 2}},
		{"-1", 4, []int{3}},
		{" 3 , -4 ", 4, []int{0, 3}},
		{"-3:", 5, []int{2, 3, 4}},
		{":2", 5, []int{0, 1}},
		{"1:10:2", 6, []int{1, 3, 5}},
		{"::-2", 5, []int{0, 2, 4}},
		{"3:0:-1", 5, []int{1, 2, 3}},
		{"10:", 5, nil},
		{"-100:2", 5, []int{0, 1}},
		{":", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			sel, err := ParseSelection(tt.sel)
			if err != nil {
				t.Fatalf("ParseSelection(%q): %v", tt.sel, err)
			}
			got, err := sel.Indices(tt.n)
			if err != nil {
				t.Fatalf("Indices(%d): %v", tt.n, err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Indices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelection_Errors(t *testing.T) {
	for _, s := range []string{"x", "1,,2", "1:2:3:4", "::0", "a:b"} {
		if _, err := ParseSelection(s); !errors.Is(err, ErrBadSelection) {
			t.Errorf("ParseSelection(%q) error = %v, want ErrBadSelection", s, err)
		}
	}
	for _, s := range []string{"4", "-5", "0,9"} {
		sel := MustSelection(s)
		if _, err := sel.Indices(4); !errors.Is(err, ErrBadSelection) {
			t.Errorf("Indices(%q) error = %v, want ErrBadSelection", s, err)
		}
	}
}

func TestSelection_String(t *testing.T) {
	if s := (Selection{}).String(); s != "all" {
		t.Errorf("zero Selection String() = %q", s)
	}
	if s := MustSelection("-3:").String(); s != "-3:" {
		t.Errorf("String() = %q, want %q", s, "-3:")
	}
	if !MustSelection("all").All() {
		t.Error(`"all" is not All()`)
	}
}
