package parser

import (
	"testing"
	"time"

	"github.com/avasilkov/hltb-crawler/models"
)

func TestAssemble(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 45, 999999999, time.UTC)
	page := `<html><body>
<div class="GameHeader_profile_header__a1">Foo</div>
<div class="GameSummary_profile_info__b2">NA: August 26th, 2020</div>
<table class="GameTimeTable_game_main_table__c3">
  <thead><tr><td>Single-Player</td><td>Polled</td><td>Average</td></tr></thead>
  <tbody><tr class="spreadsheet_x"><td>Main Story</td><td>1,234</td><td>10 Hours</td></tr></tbody>
</table>
</body></html>`

	rec, err := Assemble(42, "https://example.com/game/42", page, now)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if rec == nil {
		t.Fatal("Assemble returned nil record for a valid page")
	}
	if rec.ID != 42 || rec.Name != "Foo" {
		t.Errorf("id/name = %d/%q, want 42/Foo", rec.ID, rec.Name)
	}
	if rec.ContentType != ContentTypeGame {
		t.Errorf("content type = %q, want %q", rec.ContentType, ContentTypeGame)
	}
	if got := rec.Averages[models.KeyMainStory]; got != 10 {
		t.Errorf("main_story average = %v, want 10", got)
	}
	if got := rec.Polled[models.KeyMainStory]; got != 1234 {
		t.Errorf("main_story polled = %v, want 1234", got)
	}
	if rec.Release.Date != "2020-08-26" || rec.Release.Precision != PrecisionDay {
		t.Errorf("release = %+v, want day precision 2020-08-26", rec.Release)
	}
	if rec.SourceURL != "https://example.com/game/42" {
		t.Errorf("source url = %q", rec.SourceURL)
	}
	if want := now.Truncate(time.Second); !rec.CrawledAt.Equal(want) {
		t.Errorf("crawled at = %v, want %v", rec.CrawledAt, want)
	}
}

func TestAssembleSkips(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "no title",
			html: `<html><body><table class="GameTimeTable_game_main_table__x"><thead><tr><td>Single-Player</td></tr></thead><tbody><tr class="spreadsheet_x"><td>Main Story</td><td>5</td><td>10 Hours</td></tr></tbody></table></body></html>`,
		},
		{
			name: "title but no stats",
			html: `<html><body><div class="GameHeader_profile_header__a">Empty Shell</div></body></html>`,
		},
		{
			name: "placeholder averages only",
			html: `<html><body><div class="GameHeader_profile_header__a">Dashes</div><table class="GameTimeTable_game_main_table__x"><thead><tr><td>Single-Player</td></tr></thead><tbody><tr class="spreadsheet_x"><td>Main Story</td><td>--</td><td>--</td></tr></tbody></table></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Assemble(7, "https://example.com/game/7", tt.html, time.Now())
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if rec != nil {
				t.Fatalf("expected skip, got record %+v", rec)
			}
		})
	}
}
