package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/avasilkov/hltb-crawler/models"
)

// timeLabels maps the label variants seen across both page layouts onto the
// canonical time keys.
var timeLabels = map[string]string{
	"main story":     models.KeyMainStory,
	"main + sides":   models.KeyMainPlusSides,
	"main + extras":  models.KeyMainPlusSides,
	"completionist":  models.KeyCompletionist,
	"all styles":     models.KeyAllStyles,
	"all playstyles": models.KeyAllStyles,
	"single-player":  models.KeySinglePlayer,
	"single player":  models.KeySinglePlayer,
	"singleplayer":   models.KeySinglePlayer,
	"co-op":          models.KeyCoOp,
	"coop":           models.KeyCoOp,
	"competitive":    models.KeyVersus,
	"vs.":            models.KeyVersus,
	"versus":         models.KeyVersus,
}

// normTimeLabel resolves a row or list label to its canonical key.
func normTimeLabel(label string) (string, bool) {
	key, ok := timeLabels[strings.ToLower(strings.TrimSpace(label))]
	return key, ok
}

// Content classification is a tiny tagging grammar: a "note:" gate followed
// by zero or more known tokens anywhere in the summary text.
const noteToken = "note:"

var contentTokens = []string{"dlc/expansion", "multiplayer focused"}

// ContentTypeGame labels entries whose summary carries no note token.
const ContentTypeGame = "game"

// classifyContent maps the note tokens found in summary blocks to a sorted,
// de-duplicated label string, or "game" when none were found.
func classifyContent(summaries []string) string {
	seen := make(map[string]struct{})
	for _, text := range summaries {
		lowered := strings.ToLower(text)
		if !strings.Contains(lowered, noteToken) {
			continue
		}
		for _, token := range contentTokens {
			if strings.Contains(lowered, token) {
				seen[token] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return ContentTypeGame
	}
	flags := make([]string, 0, len(seen))
	for token := range seen {
		flags = append(flags, token)
	}
	sort.Strings(flags)
	return strings.Join(flags, "; ")
}

var polledRe = regexp.MustCompile(`\d[\d,]*`)

// parsePolled extracts a poll count from cell text: the first digit run with
// thousands separators stripped.
func parsePolled(text string) (int, bool) {
	m := polledRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
