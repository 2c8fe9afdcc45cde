package format

import (
	"fmt"
	"strconv"
	"strings"
)

func FormatBytes(b int64) string {
	const (
		_  = iota
		KB = 1 << (10 * iota)
		MB
		GB
		TB
	)

	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	if val == float64(int64(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// ParseBytes parses human byte-size strings like "512", "4MB" or "1.5GB".
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multipliers := []struct {
		suffix string
		factor uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}

	factor := uint64(1)
	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			s = strings.TrimSuffix(s, m.suffix)
			factor = m.factor
			break
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint64(v * float64(factor)), nil
}
