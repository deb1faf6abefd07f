package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avasilkov/hltb-crawler/models"
)

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// Region-code-prefixed release patterns, one per precision tier. The bare
// year tier keeps the prefix case-sensitive so running text like "up: 2012"
// cannot fake a region code.
var (
	releaseDayRe   = regexp.MustCompile(`(?i)[A-Z]{2,3}:\s*([A-Za-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
	releaseMonthRe = regexp.MustCompile(`(?i)[A-Z]{2,3}:\s*([A-Za-z]+)\s+(\d{4})\b`)
	releaseYearRe  = regexp.MustCompile(`[A-Z]{2,3}:\s*(\d{4})\b`)
)

// Precision labels stored alongside the date.
const (
	PrecisionDay   = "day"
	PrecisionMonth = "month"
	PrecisionYear  = "year"
)

// ParseRelease scans summary text blocks for a release date, trying day, then
// month, then year precision. The first block matching a tier wins; an
// unrecognized month name skips that candidate rather than failing the page.
func ParseRelease(texts []string) models.ReleaseInfo {
	for _, text := range texts {
		m := releaseDayRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return models.ReleaseInfo{
			Date:      fmt.Sprintf("%04d-%02d-%02d", year, month, day),
			Precision: PrecisionDay,
			Year:      fmt.Sprintf("%04d", year),
			Month:     fmt.Sprintf("%02d", month),
			Day:       fmt.Sprintf("%02d", day),
		}
	}

	for _, text := range texts {
		m := releaseMonthRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		return models.ReleaseInfo{
			Date:      fmt.Sprintf("%04d-%02d", year, month),
			Precision: PrecisionMonth,
			Year:      fmt.Sprintf("%04d", year),
			Month:     fmt.Sprintf("%02d", month),
		}
	}

	for _, text := range texts {
		m := releaseYearRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		return models.ReleaseInfo{
			Date:      fmt.Sprintf("%04d", year),
			Precision: PrecisionYear,
			Year:      fmt.Sprintf("%04d", year),
		}
	}

	return models.ReleaseInfo{}
}

// parseLegacyDay is the single-pattern day detector kept from the older page
// generation. It only ever fills an otherwise-empty result.
func parseLegacyDay(texts []string) string {
	for _, text := range texts {
		m := releaseDayRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	return ""
}

// mergeRelease fills primary from the legacy fallback date when the primary
// extractor found nothing. It never overrides an existing result.
func mergeRelease(primary models.ReleaseInfo, fallback string) models.ReleaseInfo {
	if !primary.Empty() || fallback == "" {
		return primary
	}
	parts := strings.SplitN(fallback, "-", 3)
	if len(parts) != 3 {
		return primary
	}
	return models.ReleaseInfo{
		Date:      fallback,
		Precision: PrecisionDay,
		Year:      parts[0],
		Month:     parts[1],
		Day:       parts[2],
	}
}
