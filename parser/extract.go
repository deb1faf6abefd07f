package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/avasilkov/hltb-crawler/models"
)

// The catalog ships CSS-module class names with hashed suffixes, so every
// selector matches on the stable prefix only.
const (
	selHeader    = `div[class*="GameHeader_profile_header"]`
	selSummary   = `div[class*="GameSummary_profile_info"]`
	selTimeTable = `table[class*="GameTimeTable_game_main_table"]`
	selTimeList  = `div[class*="GameStats_game_times"]`
	selMetadata  = `script[type="application/ld+json"]`
)

// joinedText returns the visible text of a subtree with runs of whitespace
// (including NBSP) collapsed to single spaces.
func joinedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// extractTitle reads the page title from the profile header, falling back to
// the embedded ld+json metadata payload. An empty result fails the page.
func extractTitle(doc *goquery.Document) string {
	if title := joinedText(doc.Find(selHeader).First()); title != "" {
		return title
	}

	var fallback string
	doc.Find(selMetadata).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return true
		}
		items, ok := payload.([]any)
		if !ok {
			items = []any{payload}
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := obj["name"].(string); ok && name != "" {
				fallback = name
				return false
			}
		}
		return true
	})
	return fallback
}

// summaryTexts collects the normalized text of every summary/info block.
// Release dates and content-type notes both live in these blocks.
func summaryTexts(doc *goquery.Document) []string {
	var texts []string
	doc.Find(selSummary).Each(func(_ int, s *goquery.Selection) {
		if text := joinedText(s); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

// timesResult is the canonical output shape of a time-table reader: average
// hours and poll counts by canonical key, absence meaning "not stated".
type timesResult struct {
	avg    map[string]float64
	polled map[string]int
}

func newTimesResult() timesResult {
	return timesResult{
		avg:    make(map[string]float64),
		polled: make(map[string]int),
	}
}

// A timesReader extracts completion times from one page layout generation.
type timesReader func(doc *goquery.Document) timesResult

// readTimes reconciles the two layout generations: the tabular layout is
// preferred, and the legacy list layout is consulted only when the tables
// yielded no average at all.
func readTimes(doc *goquery.Document) timesResult {
	for _, read := range []timesReader{readTimeTables, readTimeList} {
		if res := read(doc); len(res.avg) > 0 {
			return res
		}
	}
	return newTimesResult()
}

// readTimeTables handles the current layout: one table per section, a header
// cell naming the section, and spreadsheet rows of (label, polled, average).
func readTimeTables(doc *goquery.Document) timesResult {
	res := newTimesResult()
	doc.Find(selTimeTable).Each(func(_ int, table *goquery.Selection) {
		section := strings.ToLower(joinedText(table.Find("thead td").First()))

		table.Find(`tbody tr[class*="spreadsheet"]`).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 3 {
				return
			}
			key, ok := normTimeLabel(joinedText(cells.Eq(0)))
			if !ok {
				return
			}
			avg, haveAvg := parseAverageCell(joinedText(cells.Eq(2)))
			polled, havePolled := parsePolled(joinedText(cells.Eq(1)))

			// A "main story" row inside the single-player section doubles as
			// the single_player aggregate. Observed site behavior, kept as a
			// backfill rather than a guarantee.
			if section == "single-player" && key == models.KeyMainStory {
				if haveAvg {
					res.avg[models.KeySinglePlayer] = avg
				}
				if havePolled {
					res.polled[models.KeySinglePlayer] = polled
				}
			}

			if haveAvg {
				res.avg[key] = avg
			}
			if havePolled {
				res.polled[key] = polled
			}
		})
	})
	return res
}

// parseAverageCell treats placeholder dashes and empty cells as absent
// instead of handing them to the duration grammar.
func parseAverageCell(text string) (float64, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" || trimmed == "--" || trimmed == "-" {
		return 0, false
	}
	return ParseDuration(text)
}

// readTimeList handles the legacy layout: list items pairing a label element
// with a value element. The list layout never carries poll counts.
func readTimeList(doc *goquery.Document) timesResult {
	res := newTimesResult()
	stats := doc.Find(selTimeList).First()
	if stats.Length() == 0 {
		return res
	}

	extra := make(map[string]float64)
	stats.Find("li").Each(func(_ int, li *goquery.Selection) {
		label := li.Find("h4").First()
		value := li.Find("h5").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		key, ok := normTimeLabel(joinedText(label))
		if !ok {
			return
		}
		val, ok := ParseDuration(joinedText(value))
		if !ok {
			return
		}
		switch key {
		case models.KeySinglePlayer, models.KeyCoOp, models.KeyVersus:
			extra[key] = val
		default:
			res.avg[key] = val
		}
	})

	if _, ok := res.avg[models.KeyMainStory]; !ok {
		if v, ok := extra[models.KeySinglePlayer]; ok {
			res.avg[models.KeyMainStory] = v
		}
	}
	for key, val := range extra {
		res.avg[key] = val
	}
	return res
}
