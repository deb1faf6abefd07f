// Package parser turns raw catalog page markup into typed record fields.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The duration grammar, tried in priority order against normalized text.
// Matching is anchored at the start so trailing noise cannot flip a tier.
var (
	durationRangeRe = regexp.MustCompile(`\s*[–—-]\s*`)
	durationHalfN   = regexp.MustCompile(`^(\d+)\s*½\s*h(?:our)?s?\b`)
	durationHalf    = regexp.MustCompile(`^½\s*h(?:our)?s?\b`)
	durationHM      = regexp.MustCompile(`^(\d+)\s*h\s*(\d+)\s*m\b`)
	durationH       = regexp.MustCompile(`^(\d+)\s*h\b`)
	durationM       = regexp.MustCompile(`^(\d+)\s*m\b`)
	durationMins    = regexp.MustCompile(`^(\d+)\s*(?:mins?|minutes?)\b`)
	durationHours   = regexp.MustCompile(`^(\d+)\s*h(?:our)?s?\b`)
	durationBare    = regexp.MustCompile(`^(\d+(?:\.\d+)?)$`)
)

// ParseDuration converts free-form duration text to hours. The second return
// value is false when the text is explicitly empty ("--", "-") or does not
// match the grammar; that is "unknown", not zero.
func ParseDuration(text string) (float64, bool) {
	raw := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(text, " ", " ")))
	if raw == "" || raw == "--" || raw == "-" {
		return 0, false
	}

	if strings.ContainsAny(raw, "-–—") {
		parts := durationRangeRe.Split(raw, -1)
		if len(parts) == 2 {
			a, okA := ParseDuration(parts[0])
			b, okB := ParseDuration(parts[1])
			if okA && okB {
				return round2((a + b) / 2), true
			}
		}
	}

	if m := durationHalfN.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n) + 0.5, true
	}
	if durationHalf.MatchString(raw) {
		return 0.5, true
	}
	if m := durationHM.FindStringSubmatch(raw); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		return round2(float64(hours) + float64(minutes)/60), true
	}
	if m := durationH.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n), true
	}
	if m := durationM.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return round2(float64(n) / 60), true
	}
	if m := durationMins.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return round2(float64(n) / 60), true
	}
	if m := durationHours.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n), true
	}
	// Bare numbers appear as the low half of ranges like "10 - 12 Hours".
	if m := durationBare.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		return n, true
	}

	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatHours renders an hour value the way the store expects: two decimal
// places at most, whole values without a fraction.
func FormatHours(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
