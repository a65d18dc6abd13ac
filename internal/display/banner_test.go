package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestFprintBanner_Plain(t *testing.T) {
	var b bytes.Buffer
	FprintBanner(&b)
	if strings.Contains(b.String(), "\x1b[") {
		t.Error("banner colored while colors are disabled")
	}
	if !strings.HasSuffix(b.String(), "|_|\n") {
		t.Errorf("banner does not end with its last art line: %q", b.String())
	}
}
