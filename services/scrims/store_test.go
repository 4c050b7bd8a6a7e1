package scrims

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"scrimstats/lib/scrapers/scrimpage"

	"github.com/stretchr/testify/require"
)

func TestDayStoreCarryForward(t *testing.T) {
	path := DayPath(t.TempDir(), "2026-03-02")
	roster := Roster{{Id: "zero"}, {Id: "one"}, {Id: "two"}, {Id: "three"}}

	stored := Record{
		Date: "2026-03-02",
		Entries: []Entry{
			{Id: 3, Score: 700, Git: "abc123"},
			{Id: 0, Score: 500, Git: ""},
		},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, WriteDay(path, stored))

	commits := LoadDayCommits(path, roster)
	require.Equal(t, map[string]string{"three": "abc123"}, commits)
}

func TestLoadDayCommitsMissingFile(t *testing.T) {
	require.Nil(t, LoadDayCommits(filepath.Join(t.TempDir(), "nope.json"), Roster{}))
}

func TestLoadDayCommitsCorruptFileIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data-2026-03-02.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0644))
	require.Nil(t, LoadDayCommits(path, Roster{}))
}

func TestWriteDayIdempotent(t *testing.T) {
	path := DayPath(t.TempDir(), "2026-03-02")
	record := Record{
		Date:       "2026-03-02",
		Stage:      "Stage #3",
		StageKey:   "s3",
		Seed:       "seed-123",
		RoundSeeds: []string{"s1", "s2"},
		Entries:    []Entry{{Id: 1, Score: 700, Git: "abc"}},
	}

	require.NoError(t, WriteDay(path, record))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteDay(path, record))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func legacyRecord(date, stage, seed string) LegacyRecord {
	return LegacyRecord{
		Date:  date,
		Stage: stage,
		Seed:  seed,
		Entries: []scrimpage.LegacyEntry{
			{Student: true, Bot: "Zulu", Score: 700, Commit: "abc"},
		},
	}
}

func TestLegacyStoreUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	// missing file reads as an empty store
	records, err := ReadLegacyStore(path)
	require.NoError(t, err)
	require.Empty(t, records)

	records = UpsertLegacy(records, legacyRecord("2026-03-02", "Stage #3", "s"))
	records = UpsertLegacy(records, legacyRecord("2026-03-01", "Stage #3", "s"))
	require.NoError(t, WriteLegacyStore(path, records))

	records, err = ReadLegacyStore(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// date ascending
	require.Equal(t, "2026-03-01", records[0].Date)
	require.Equal(t, "2026-03-02", records[1].Date)

	// same (date, stage, seed) replaces in place
	updated := legacyRecord("2026-03-02", "Stage #3", "s")
	updated.Entries[0].Commit = "def"
	records = UpsertLegacy(records, updated)
	require.Len(t, records, 2)
	require.Equal(t, "def", records[1].Entries[0].Commit)

	// different seed appends a new record
	records = UpsertLegacy(records, legacyRecord("2026-03-02", "Stage #3", "other"))
	require.Len(t, records, 3)
}

func TestReadLegacyStoreRejectsNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0644))

	_, err := ReadLegacyStore(path)
	require.Error(t, err)
}

func TestAppendMissingBotsDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_bots.json")

	added, err := AppendMissingBots(path, []MissingBot{{Id: "x"}, {Id: "y"}})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	// the same identities surfacing again must not duplicate
	added, err = AppendMissingBots(path, []MissingBot{{Id: "x"}, {Id: "z"}})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var all []MissingBot
	require.NoError(t, json.Unmarshal(raw, &all))
	require.Len(t, all, 3)
	require.Equal(t, "x", all[0].Id)
	require.Equal(t, "y", all[1].Id)
	require.Equal(t, "z", all[2].Id)
}

func TestAppendMissingBotsNothingToDo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_bots.json")
	added, err := AppendMissingBots(path, nil)
	require.NoError(t, err)
	require.Zero(t, added)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
