// Package models defines data structures for the crawler.
package models

import "time"

// Canonical per-playstyle time keys, in store column order.
const (
	KeyMainStory     = "main_story"
	KeyMainPlusSides = "main_plus_sides"
	KeyCompletionist = "completionist"
	KeyAllStyles     = "all_styles"
	KeySinglePlayer  = "single_player"
	KeyCoOp          = "co_op"
	KeyVersus        = "versus"
)

// TimeKeys lists the canonical keys in the order they appear in the store.
var TimeKeys = []string{
	KeyMainStory,
	KeyMainPlusSides,
	KeyCompletionist,
	KeyAllStyles,
	KeySinglePlayer,
	KeyCoOp,
	KeyVersus,
}

// CSVHeader is the fixed, ordered column set of the output store.
var CSVHeader = []string{
	"id", "name", "type",
	"release_date", "release_precision", "release_year", "release_month", "release_day",
	"main_story_polled", "main_story",
	"main_plus_sides_polled", "main_plus_sides",
	"completionist_polled", "completionist",
	"all_styles_polled", "all_styles",
	"single_player_polled", "single_player",
	"co_op_polled", "co_op",
	"versus_polled", "versus",
	"source_url", "crawled_at",
}

// ReleaseInfo holds a release date at whatever precision the page states it.
// Empty strings mean the component is unknown. When Precision is "day" all of
// Year, Month and Day are set; "month" leaves Day empty; "year" leaves Month
// and Day empty; an empty Precision leaves everything empty.
type ReleaseInfo struct {
	Date      string `json:"release_date,omitempty"`
	Precision string `json:"release_precision,omitempty"`
	Year      string `json:"release_year,omitempty"`
	Month     string `json:"release_month,omitempty"`
	Day       string `json:"release_day,omitempty"`
}

// Empty reports whether no release information was found.
func (r ReleaseInfo) Empty() bool {
	return r.Date == ""
}

// Record is one catalog entry as written to the store.
//
// Averages maps canonical time keys to community-reported mean hours; Polled
// maps the same keys to report counts. A key absent from the map means the
// page did not state a value, which is distinct from zero.
type Record struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	ContentType string             `json:"type"`
	Release     ReleaseInfo        `json:"release"`
	Averages    map[string]float64 `json:"averages"`
	Polled      map[string]int     `json:"polled"`
	SourceURL   string             `json:"source_url"`
	CrawledAt   time.Time          `json:"crawled_at"`
}

// HasStats reports whether the record carries any completion-time data at
// all. Records without stats are not worth storing.
func (r *Record) HasStats() bool {
	return len(r.Averages) > 0 || len(r.Polled) > 0
}

// RunSummary holds the overall result of one crawl run.
type RunSummary struct {
	StartTime  time.Time
	EndTime    time.Time
	LastID     int
	Stored     int
	Skipped    int
	Duplicates int
	Errors     int
	AutoStop   bool
}
