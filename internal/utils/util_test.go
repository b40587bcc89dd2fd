package utils

import (
	"strings"
	"testing"
)

func TestDurationToTimeString(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
		{-4, "00:00:00"},
		{360000, "100:00:00"},
	}
	for _, tt := range tests {
		if got := DurationToTimeString(tt.in); got != tt.want {
			t.Fatalf("DurationToTimeString(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"90", 90},
		{"1m30s", 90},
		{"1h", 3600},
		{"01:02:03", 3723},
		{"2:05", 125},
		{"", -1},
		{"soon", -1},
		{"1:xx", -1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDurationString(tt.in); got != tt.want {
				t.Fatalf("ParseDurationString(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	in := "<p>Nesse episódio &amp; mais</p><p>Segundo<br/>parágrafo</p>"
	want := "Nesse episódio & mais\nSegundo\nparágrafo"
	if got := StripHTML(in); got != want {
		t.Fatalf("StripHTML() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Fatalf("Truncate() = %q", got)
	}
}

func TestEscapeMd(t *testing.T) {
	if got := EscapeMd("a_b*c"); got != `a\_b\*c` {
		t.Fatalf("EscapeMd() = %q", got)
	}
}

func TestBuildFFmpegHeaders(t *testing.T) {
	got := BuildFFmpegHeaders(map[string]string{"user-agent": "podcaster", "x-token": "abc"})
	if !strings.Contains(got, "User-Agent: podcaster\r\n") {
		t.Fatalf("missing user agent: %q", got)
	}
	if !strings.Contains(got, "X-token: abc\r\n") {
		t.Fatalf("missing custom header: %q", got)
	}
	if !strings.HasPrefix(got, "Accept: ") {
		t.Fatalf("headers not sorted: %q", got)
	}
}
