package scrimpage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LegacyEntry is the older, flat leaderboard row shape persisted by
// the growing-array store generation.
type LegacyEntry struct {
	Student  bool    `json:"student"`
	Emoji    string  `json:"emoji"`
	Bot      string  `json:"bot"`
	Score    float64 `json:"score"`
	Gu       float64 `json:"gu"`
	Cf       float64 `json:"cf"`
	Fc       float64 `json:"fc"`
	Author   string  `json:"author"`
	Location string  `json:"location"`
	Language string  `json:"language"`
	Commit   string  `json:"commit"`
}

// Snapshot is a full page capture: the info boxes plus every
// leaderboard row, baseline bots included.
type Snapshot struct {
	Date    string
	Stage   string
	Seed    string
	Entries []LegacyEntry
}

// FetchSnapshot fetches the scrims page and extracts a legacy
// snapshot from it.
func (c *Client) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	html, err := c.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return ExtractSnapshot(html)
}

// ExtractSnapshot parses the info boxes and the full leaderboard table
// out of the scrims page. Unlike ExtractRows, zero rows is fatal here:
// a snapshot without entries is worthless.
func ExtractSnapshot(html string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Snapshot{}, &ParseError{Msg: err.Error()}
	}

	dateText, err := boxValue(doc, "Datum")
	if err != nil {
		return Snapshot{}, err
	}
	date := dateText
	if iso, ok := parseGermanDate(dateText); ok {
		date = iso
	}

	stage, err := extractStage(doc)
	if err != nil {
		return Snapshot{}, err
	}
	seed, err := extractSeed(doc)
	if err != nil {
		return Snapshot{}, err
	}
	entries, err := extractLegacyEntries(doc)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Date:    date,
		Stage:   stage,
		Seed:    seed,
		Entries: entries,
	}, nil
}

// boxSelection finds the <p> paired with an <h3> heading matched by
// the predicate.
func boxSelection(doc *goquery.Document, match func(heading string) bool) (*goquery.Selection, string) {
	var value *goquery.Selection
	var heading string
	doc.Find("h3").EachWithBreak(func(_ int, h3 *goquery.Selection) bool {
		text := cellText(h3)
		if !match(text) {
			return true
		}
		p := h3.NextAllFiltered("p").First()
		if p.Length() == 0 {
			p = h3.Parent().Find("p").First()
		}
		if p.Length() == 0 {
			return true
		}
		value = p
		heading = text
		return false
	})
	return value, heading
}

func boxValue(doc *goquery.Document, label string) (string, error) {
	p, _ := boxSelection(doc, func(heading string) bool { return heading == label })
	if p == nil {
		return "", &ParseError{Msg: fmt.Sprintf("no %q box found", label)}
	}
	return cellText(p), nil
}

var stageHeading = regexp.MustCompile(`^Stage\s*#(\d+)$`)

func extractStage(doc *goquery.Document) (string, error) {
	var number string
	p, heading := boxSelection(doc, func(heading string) bool {
		return stageHeading.MatchString(heading)
	})
	if p == nil {
		return "", &ParseError{Msg: "no Stage box found"}
	}
	number = stageHeading.FindStringSubmatch(heading)[1]

	name := cellText(p)
	if name == "" {
		return "Stage #" + number, nil
	}
	return fmt.Sprintf("Stage #%s: %s", number, name), nil
}

func extractSeed(doc *goquery.Document) (string, error) {
	p, _ := boxSelection(doc, func(heading string) bool { return heading == "Seed" })
	if p == nil {
		return "", &ParseError{Msg: "no Seed box found"}
	}
	span := p.Find("span").First()
	if span.Length() > 0 {
		return cellText(span), nil
	}
	return cellText(p), nil
}

func extractLegacyEntries(doc *goquery.Document) ([]LegacyEntry, error) {
	table := findCommitTable(doc)
	if table == nil {
		return nil, &ParseError{Msg: "no leaderboard table found"}
	}

	var entries []LegacyEntry
	var rowErr error
	bodyRows(table).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if tr.HasClass("spacer") {
			return true
		}
		cells := tr.Find("td")
		if cells.Length() < 11 {
			return true
		}

		entry := LegacyEntry{
			Student:  !tr.HasClass("baseline"),
			Emoji:    cellText(cells.Eq(1)),
			Bot:      cellText(cells.Eq(2)),
			Author:   cellText(cells.Eq(7)),
			Location: cellText(cells.Eq(8)),
			Language: parseLanguage(cells.Eq(9)),
			Commit:   cellText(cells.Eq(10)),
		}

		fields := []struct {
			out          *float64
			cell         int
			allowPercent bool
		}{
			{&entry.Score, 3, false},
			{&entry.Gu, 4, true},
			{&entry.Cf, 5, true},
			{&entry.Fc, 6, true},
		}
		for _, f := range fields {
			v, err := parseNumber(cellText(cells.Eq(f.cell)), f.allowPercent)
			if err != nil {
				rowErr = err
				return false
			}
			*f.out = v
		}

		entries = append(entries, entry)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(entries) == 0 {
		return nil, &ParseError{Msg: "no leaderboard entries parsed"}
	}
	return entries, nil
}

var nonNumeric = regexp.MustCompile(`[^\d.\-+]`)

// parseNumber reads a numeric cell. Dash variants render "no data"
// upstream and count as zero rather than an error.
func parseNumber(value string, allowPercent bool) (float64, error) {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "", "-", "–", "—":
		return 0, nil
	}
	if allowPercent {
		trimmed = strings.ReplaceAll(trimmed, "%", "")
	}
	numeric := nonNumeric.ReplaceAllString(trimmed, "")
	switch numeric {
	case "", "-", "+":
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, &ParseError{Msg: fmt.Sprintf("unable to parse number from %q", value)}
	}
	return parsed, nil
}

var numericGermanDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
var writtenGermanDate = regexp.MustCompile(`^(\d{1,2})\.\s*([A-Za-zÄÖÜäöüß]+)\s+(\d{4})$`)

var germanMonths = map[string]int{
	"januar":    1,
	"februar":   2,
	"märz":      3,
	"maerz":     3,
	"april":     4,
	"mai":       5,
	"juni":      6,
	"juli":      7,
	"august":    8,
	"september": 9,
	"oktober":   10,
	"november":  11,
	"dezember":  12,
}

// parseGermanDate converts "2. März 2026" or "02.03.2026" to ISO
// YYYY-MM-DD form.
func parseGermanDate(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)

	if m := numericGermanDate.FindStringSubmatch(trimmed); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day), true
	}

	m := writtenGermanDate.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	month, ok := germanMonths[strings.ToLower(m[2])]
	if !ok {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%s-%02d-%02d", m[3], month, day), true
}

var logoSuffix = regexp.MustCompile(`(?i)-logo.*$`)
var fileExtension = regexp.MustCompile(`\..*$`)

// parseLanguage recovers a language name from the logo image filename,
// e.g. "rust-logo.svg" -> "rust". Cells without an image fall back to
// their text.
func parseLanguage(sel *goquery.Selection) string {
	src := sel.Find("img").First().AttrOr("src", "")
	if src == "" {
		return cellText(sel)
	}
	filename := path.Base(src)
	if i := strings.IndexByte(filename, '?'); i >= 0 {
		filename = filename[:i]
	}
	filename = logoSuffix.ReplaceAllString(filename, "")
	return fileExtension.ReplaceAllString(filename, "")
}
