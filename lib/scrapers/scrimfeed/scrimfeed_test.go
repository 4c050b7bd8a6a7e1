package scrimfeed

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const feedDoc = `{
	"scrim_seed": "seed-123",
	"date": "2026-03-02",
	"bots": {
		"zulu": {
			"deterministic": true,
			"profile": {
				"timestamp": 1767340800,
				"stage_key": "s3",
				"stage_title": "Stage #3",
				"git_hash": "deadbeef",
				"seed": "seed-123",
				"name": "Zulu",
				"emoji": "🦊",
				"total_score": 700,
				"gem_utilization_mean": 0.5,
				"gem_utilization_cv": 0.1,
				"floor_coverage_mean": 0.25,
				"rounds": [
					{
						"seed": "r1",
						"score": 350,
						"gem_utilization": 0.5,
						"floor_coverage": 0.25,
						"disqualified_for": null,
						"response_time_stats": {"first": 1, "min": 1, "median": 1234567, "max": 50000}
					}
				]
			}
		},
		"alpha": {"deterministic": false}
	}
}`

func TestScrimUnmarshalPreservesBotOrder(t *testing.T) {
	var scrim Scrim
	err := json.Unmarshal([]byte(feedDoc), &scrim)
	require.NoError(t, err)

	require.Equal(t, "seed-123", scrim.ScrimSeed)
	require.Equal(t, "2026-03-02", scrim.Date)
	require.Len(t, scrim.Bots, 2)
	// "zulu" sorts after "alpha" but comes first in the document
	require.Equal(t, "zulu", scrim.Bots[0].ID)
	require.Equal(t, "alpha", scrim.Bots[1].ID)

	zulu := scrim.Bots[0]
	require.True(t, zulu.Deterministic)
	require.NotNil(t, zulu.Profile)
	require.Equal(t, 700, zulu.Profile.TotalScore)
	require.Equal(t, int64(1234567), zulu.Profile.Rounds[0].ResponseTimeStats.Median)
	require.Nil(t, zulu.Profile.Rounds[0].DisqualifiedFor)

	alpha := scrim.Bots[1]
	require.False(t, alpha.Deterministic)
	require.Nil(t, alpha.Profile)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dl/stats/2026-03-02.json.gz", r.URL.Path)
		w.Write([]byte(feedDoc))
	}))
	defer server.Close()

	scrim, err := NewClient(server.URL).Fetch(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.Len(t, scrim.Bots, 2)
}

func TestFetchGzippedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// pre-gzipped payload served without Content-Encoding
		w.Header().Set("Content-Type", "application/octet-stream")
		zw := gzip.NewWriter(w)
		zw.Write([]byte(feedDoc))
		zw.Close()
	}))
	defer server.Close()

	scrim, err := NewClient(server.URL).Fetch(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.Equal(t, "seed-123", scrim.ScrimSeed)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no scrim ran that day", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), "2026-03-02")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.Status)
}

func TestFetchDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), "2026-03-02")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestFetchBadGzip(t *testing.T) {
	var truncated bytes.Buffer
	zw := gzip.NewWriter(&truncated)
	zw.Write([]byte(feedDoc))
	zw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(truncated.Bytes()[:10])
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), "2026-03-02")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}
