// Package scrimpage extracts leaderboard rows from the scrims HTML
// page. The page is the only source that carries per-bot commit
// hashes, which the structured feed omits.
package scrimpage

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scrimstats/lib/restyutil"
	"scrimstats/lib/telemetry"
	"scrimstats/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("scrimstats.lib.scrapers.scrimpage")

// Row is one leaderboard table row. There is no stable identity key,
// only name/author/location/score to correlate against the feed.
type Row struct {
	Name     string
	Author   string
	Location string
	Score    int
	Commit   string
}

// ParseError reports a page without a locatable commit table. Zero
// usable rows is not a ParseError, it is an empty result set.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "scrim page: " + e.Msg
}

// FetchError reports a non-2xx response for the scrims page. Always
// recoverable: the run degrades to carried-forward commit hashes.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

// column maps a semantic field to a header keyword predicate with a
// positional fallback used when headers are absent or unrecognized.
// Adding a new upstream column layout is a data change here.
type column struct {
	match    func(header string) bool
	fallback int
}

func exactly(keyword string) func(string) bool {
	return func(header string) bool { return header == keyword }
}

func containsAll(keywords ...string) func(string) bool {
	return func(header string) bool {
		for _, k := range keywords {
			if !strings.Contains(header, k) {
				return false
			}
		}
		return true
	}
}

var columns = map[string]column{
	"name":     {match: exactly("bot"), fallback: 2},
	"score":    {match: exactly("score"), fallback: 3},
	"author":   {match: containsAll("autor", "team"), fallback: 7},
	"location": {match: exactly("ort"), fallback: 8},
	"commit":   {match: exactly("commit"), fallback: 10},
}

type columnIndex struct {
	name     int
	score    int
	author   int
	location int
	commit   int
}

func resolveColumns(headers []string) columnIndex {
	resolve := func(field string) int {
		col := columns[field]
		for i, h := range headers {
			if col.match(h) {
				return i
			}
		}
		return col.fallback
	}
	return columnIndex{
		name:     resolve("name"),
		score:    resolve("score"),
		author:   resolve("author"),
		location: resolve("location"),
		commit:   resolve("commit"),
	}
}

// cellText extracts a cell's canonical text. The inner HTML is run
// through the normalizer so nested markup and entities behave the same
// as in header cells.
func cellText(sel *goquery.Selection) string {
	inner, err := sel.Html()
	if err != nil {
		return textutil.CollapseSpace(sel.Text())
	}
	return textutil.CleanFragment(inner)
}

func findCommitTable(doc *goquery.Document) *goquery.Selection {
	table := doc.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
		found := false
		t.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
			if textutil.NormalizeMatch(cellText(th)) == "commit" {
				found = true
				return false
			}
			return true
		})
		return found
	})
	if table.Length() == 0 {
		return nil
	}
	return table.First()
}

func headerCells(table *goquery.Selection) []string {
	var headers []string
	table.Find("thead tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, textutil.NormalizeMatch(cellText(th)))
	})
	return headers
}

func bodyRows(table *goquery.Selection) *goquery.Selection {
	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		rows = table.Find("tr")
	}
	return rows
}

var nonDigit = regexp.MustCompile(`[^\d]`)

// ExtractRows locates the table carrying a Commit column and extracts
// one Row per usable body row. Rows marked as spacers, rows whose name
// or commit is empty after normalization and rows whose score does not
// parse as an integer are dropped.
func ExtractRows(html string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	table := findCommitTable(doc)
	if table == nil {
		return nil, &ParseError{Msg: "no table with a Commit column header"}
	}

	idx := resolveColumns(headerCells(table))

	var rows []Row
	bodyRows(table).Each(func(_ int, tr *goquery.Selection) {
		if tr.HasClass("spacer") {
			return
		}
		cells := tr.Find("td")
		if cells.Length() <= idx.commit {
			return
		}

		name := cellText(cells.Eq(idx.name))
		scoreText := nonDigit.ReplaceAllString(cellText(cells.Eq(idx.score)), "")
		score, err := strconv.Atoi(scoreText)
		commit := cellText(cells.Eq(idx.commit))
		// a lone dash is how the page renders "no data"
		if textutil.NormalizeMatch(name) == "" || err != nil || textutil.NormalizeMatch(commit) == "" {
			return
		}

		rows = append(rows, Row{
			Name:     name,
			Author:   cellText(cells.Eq(idx.author)),
			Location: cellText(cells.Eq(idx.location)),
			Score:    score,
			Commit:   commit,
		})
	})
	return rows, nil
}

const userAgent = "hidden-gems-stats-bot/1.0 (+https://github.com)"

type Client struct {
	http    *resty.Client
	baseUrl string
}

func NewClient(baseUrl string) *Client {
	client := resty.New().
		SetTimeout(time.Second * 30).
		SetHeader("User-Agent", userAgent)
	restyutil.InstrumentClient(client, tracer)
	return &Client{
		http:    client,
		baseUrl: baseUrl,
	}
}

// FetchRows fetches the scrims page and extracts its leaderboard rows.
func (c *Client) FetchRows(ctx context.Context) ([]Row, error) {
	html, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractRows(html)
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch")
	defer span.End()

	url := c.baseUrl + "/scrims"
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return "", &FetchError{URL: url, Status: res.StatusCode()}
	}
	return res.String(), nil
}
