package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/avasilkov/hltb-crawler/models"
)

// Assemble builds a candidate record from one fetched page. A nil record with
// a nil error means the page holds nothing worth storing (no title, or no
// completion-time data at all); that is a skip, not an error. Panics inside
// extraction are recovered into the error return so one malformed page cannot
// take down the crawl.
func Assemble(id int, sourceURL, html string, now time.Time) (rec *models.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("assemble id %d: panic: %v", id, r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("assemble id %d: parse document: %w", id, err)
	}

	name := extractTitle(doc)
	if name == "" {
		return nil, nil
	}

	summaries := summaryTexts(doc)
	times := readTimes(doc)
	release := mergeRelease(ParseRelease(summaries), parseLegacyDay(summaries))

	rec = &models.Record{
		ID:          id,
		Name:        name,
		ContentType: classifyContent(summaries),
		Release:     release,
		Averages:    times.avg,
		Polled:      times.polled,
		SourceURL:   sourceURL,
		CrawledAt:   now.UTC().Truncate(time.Second),
	}
	if !rec.HasStats() {
		return nil, nil
	}
	return rec, nil
}
