// Package units formats byte quantities for display.
package units

import (
	"fmt"
	"math"
)

var suffixes = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with the largest base-1024 unit (B to TB) that keeps
// the scaled value in [1, 1024), rounded to two decimals. Zero and negative
// values render as "0 B". Values of 1024 TB and above stay in TB.
//
// Results are exact for n up to 2^53; above that float64 rounding affects
// only the last displayed digit.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}

	value := float64(n)
	i := 0
	for value >= 1024 && i < len(suffixes)-1 {
		value /= 1024
		i++
	}

	// 1023.999 KB would otherwise print as "1024.00 KB".
	if math.Round(value*100)/100 >= 1024 && i < len(suffixes)-1 {
		value /= 1024
		i++
	}

	return fmt.Sprintf("%.2f %s", value, suffixes[i])
}

// FormatBytesPtr is FormatBytes for optional values; nil renders as "0 B".
func FormatBytesPtr(n *int64) string {
	if n == nil {
		return "0 B"
	}
	return FormatBytes(*n)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", p)
}
