package player

func ProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	progress = min(max(progress, 0), 1)
	dot := min(int(float64(width)*progress), width-1)
	out := make([]rune, 0, width)
	for i := range width {
		if i == dot {
			out = append(out, '🔘')
		} else {
			out = append(out, '▬')
		}
	}
	return string(out)
}

// Fraction is position/duration, 0 when the duration is unknown.
func Fraction(position, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(position) / float64(duration)
}
