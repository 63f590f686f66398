// Package util provides common helpers shared by the space center packages.
package util

import (
	"fmt"
	"math"
	"strings"
)

// KerbinDay is the length of a day on the home world, in seconds.
const KerbinDay = 6 * 60 * 60

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims surrounding quotes and unescapes doubled quotes in place.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return args
}

// FormatMET renders mission elapsed time as T+[Nd ]HH:MM:SS using home-world
// days. Negative and non-finite values render as T+00:00:00.
func FormatMET(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	days := total / KerbinDay
	rem := total % KerbinDay
	h, m, s := rem/3600, (rem%3600)/60, rem%60
	if days > 0 {
		return fmt.Sprintf("T+%dd %02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("T+%02d:%02d:%02d", h, m, s)
}

// Finite replaces NaN and infinities with zero so results always encode as JSON numbers.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
