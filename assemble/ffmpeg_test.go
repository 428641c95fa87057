package assemble

import (
	"strings"
	"testing"
)

func TestWrapSubtitle(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits one line", "chips are back", 24, "chips are back"},
		{"wraps at word boundary", "Nvidia posted record quarterly revenue today", 24, "Nvidia posted record\nquarterly revenue today"},
		{"long word own line", "extraordinarily big announcement", 10, "extraordinarily\nbig\nannouncement"},
		{"empty", "   ", 24, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapSubtitle(tt.in, tt.width); got != tt.want {
				t.Errorf("wrapSubtitle(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapSubtitleNeverSplitsWords(t *testing.T) {
	in := "the semiconductor supply chain remains under heavy pressure"
	out := wrapSubtitle(in, 15)
	if strings.Join(strings.Split(out, "\n"), " ") != in {
		t.Errorf("wrapping altered the words: %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 15 && strings.Contains(line, " ") {
			t.Errorf("multi-word line %q exceeds width", line)
		}
	}
}

func TestEscapeDrawtext(t *testing.T) {
	in := `it's 50% done: chips, wafers \ fabs`
	got := escapeDrawtext(in)
	for _, want := range []string{`\'`, `\%`, `\:`, `\,`, `\\`} {
		if !strings.Contains(got, want) {
			t.Errorf("escaped text %q missing %q", got, want)
		}
	}
}

func TestRgbHex(t *testing.T) {
	tests := []struct {
		in   [3]int
		want string
	}{
		{[3]int{20, 20, 30}, "0x14141E"},
		{[3]int{0, 51, 102}, "0x003366"},
		{[3]int{255, 255, 255}, "0xFFFFFF"},
	}
	for _, tt := range tests {
		if got := rgbHex(tt.in); got != tt.want {
			t.Errorf("rgbHex(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	long := strings.Repeat("x", 50) + "error here"
	got := tail(long, 10)
	if got != "...error here" {
		t.Errorf("tail = %q, want ...error here", got)
	}
}
