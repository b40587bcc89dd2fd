package utils

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
)

func RandomUserAgent() string {
	const minMajor = 132
	const maxMajor = 138

	major := rand.IntN(maxMajor-minMajor+1) + minMajor
	return fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		major,
	)
}

func canonHeader(k string) string {
	k = strings.TrimSpace(k)
	switch strings.ToLower(k) {
	case "user-agent":
		return "User-Agent"
	case "referer":
		return "Referer"
	case "accept":
		return "Accept"
	case "accept-language":
		return "Accept-Language"
	case "connection":
		return "Connection"
	case "range":
		return "Range"
	case "authorization":
		return "Authorization"
	default:
		if len(k) == 0 {
			return k
		}
		return strings.ToUpper(k[:1]) + k[1:]
	}
}

// BuildFFmpegHeaders builds the CRLF-joined "headers" option value used when
// opening remote episode audio. Missing defaults are filled in.
func BuildFFmpegHeaders(base map[string]string) string {
	h := make(map[string]string, len(base)+3)
	for k, v := range maps.Clone(base) {
		if k = canonHeader(k); k != "" {
			h[k] = strings.TrimSpace(v)
		}
	}
	if _, ok := h["User-Agent"]; !ok {
		h["User-Agent"] = RandomUserAgent()
	}
	if _, ok := h["Accept"]; !ok {
		h["Accept"] = "audio/*,*/*;q=0.8"
	}
	if _, ok := h["Connection"]; !ok {
		h["Connection"] = "keep-alive"
	}

	keys := slices.Sorted(maps.Keys(h))

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, h[k])
	}
	return b.String()
}
