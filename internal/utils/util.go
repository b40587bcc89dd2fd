package utils

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

func EscapeMd(s string) string {
	repl := []string{"*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~"}
	r := strings.NewReplacer(repl...)
	return r.Replace(s)
}

// DurationToTimeString renders seconds as zero-padded HH:MM:SS.
func DurationToTimeString(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

var reDur = regexp.MustCompile(`(?i)^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseDurationString accepts plain seconds, 1h2m3s style, or HH:MM:SS / MM:SS.
// Unparsable input yields -1.
func ParseDurationString(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if strings.Contains(s, ":") {
		total := 0
		for _, part := range strings.Split(s, ":") {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return -1
			}
			total = total*60 + n
		}
		return total
	}
	m := reDur.FindStringSubmatch(s)
	if m == nil {
		return -1
	}
	h := Atoi(m[1])
	min := Atoi(m[2])
	sec := Atoi(m[3])
	return h*3600 + min*60 + sec
}

func Atoi(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

var (
	reBreak = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	reTag   = regexp.MustCompile(`<[^>]*>`)
	reBlank = regexp.MustCompile(`\n{3,}`)
)

// StripHTML turns an HTML episode description into plain text for embeds.
func StripHTML(s string) string {
	s = reBreak.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = reBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
