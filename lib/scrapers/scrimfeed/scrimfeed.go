// Package scrimfeed fetches the authoritative per-day scrim result
// document from the stats server.
package scrimfeed

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"scrimstats/lib/restyutil"
	"scrimstats/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("scrimstats.lib.scrapers.scrimfeed")

// Scrim is one day's batch of results for all participating bots.
type Scrim struct {
	ScrimSeed string
	Date      string
	// Bots preserves the document order of the feed's bots object,
	// which downstream tie-breaking depends on.
	Bots []BotResult
}

// BotResult is a single participant's result. Non-deterministic bots
// carry no profile.
type BotResult struct {
	ID            string   `json:"-"`
	Deterministic bool     `json:"deterministic"`
	Profile       *Profile `json:"profile,omitempty"`
}

type Profile struct {
	Timestamp          int64   `json:"timestamp"`
	StageKey           string  `json:"stage_key"`
	StageTitle         string  `json:"stage_title"`
	GitHash            string  `json:"git_hash"`
	Seed               string  `json:"seed"`
	Name               string  `json:"name"`
	Emoji              string  `json:"emoji"`
	TotalScore         int     `json:"total_score"`
	GemUtilizationMean float64 `json:"gem_utilization_mean"`
	GemUtilizationCv   float64 `json:"gem_utilization_cv"`
	FloorCoverageMean  float64 `json:"floor_coverage_mean"`
	Rounds             []Round `json:"rounds"`
}

type Round struct {
	Seed                string            `json:"seed"`
	Score               int               `json:"score"`
	GemUtilization      float64           `json:"gem_utilization"`
	FloorCoverage       float64           `json:"floor_coverage"`
	TicksToFirstCapture *int              `json:"ticks_to_first_capture,omitempty"`
	DisqualifiedFor     *string           `json:"disqualified_for"`
	ResponseTimeStats   ResponseTimeStats `json:"response_time_stats"`
}

// ResponseTimeStats are in nanoseconds.
type ResponseTimeStats struct {
	First  int64 `json:"first"`
	Min    int64 `json:"min"`
	Median int64 `json:"median"`
	Max    int64 `json:"max"`
}

func (s *Scrim) UnmarshalJSON(data []byte) error {
	var shell struct {
		ScrimSeed string          `json:"scrim_seed"`
		Date      string          `json:"date"`
		Bots      json.RawMessage `json:"bots"`
	}
	err := json.Unmarshal(data, &shell)
	if err != nil {
		return err
	}
	s.ScrimSeed = shell.ScrimSeed
	s.Date = shell.Date
	s.Bots = nil
	if len(shell.Bots) == 0 || bytes.Equal(shell.Bots, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(shell.Bots))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("bots: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("bots: expected string key, got %v", keyTok)
		}
		var bot BotResult
		err = dec.Decode(&bot)
		if err != nil {
			return err
		}
		bot.ID = id
		s.Bots = append(s.Bots, bot)
	}
	return nil
}

// FetchError reports a non-2xx response from the stats server.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

// DecodeError reports a response body that does not match the expected
// document shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Client struct {
	http    *resty.Client
	baseUrl string
}

func NewClient(baseUrl string) *Client {
	client := resty.New().SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, tracer)
	return &Client{
		http:    client,
		baseUrl: baseUrl,
	}
}

var gzipMagic = []byte{0x1f, 0x8b}

// Fetch retrieves the result document for a date in YYYY-MM-DD form.
// A single attempt: failure here is fatal to the run for that date.
func (c *Client) Fetch(ctx context.Context, date string) (*Scrim, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	url := fmt.Sprintf("%s/dl/stats/%s.json.gz", c.baseUrl, date)
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &FetchError{URL: url, Status: res.StatusCode()}
	}

	body := res.Body()
	// the transport decompresses when Content-Encoding is set, some
	// servers hand the .gz file over as an opaque octet-stream instead
	if bytes.HasPrefix(body, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, &DecodeError{URL: url, Err: err}
		}
		body, err = io.ReadAll(zr)
		if err != nil {
			return nil, &DecodeError{URL: url, Err: err}
		}
	}

	var scrim Scrim
	err = json.Unmarshal(body, &scrim)
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return &scrim, nil
}
