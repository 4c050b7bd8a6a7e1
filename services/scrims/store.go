package scrims

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"scrimstats/lib/scrapers/scrimpage"
)

// DayPath is the per-day record path inside the data directory.
func DayPath(dataDir, date string) string {
	return filepath.Join(dataDir, fmt.Sprintf("data-%s.json", date))
}

// LoadDayCommits reads the commit hashes out of an already-persisted
// day record so a rerun can carry them forward when the page yields
// nothing. Returns nil when the file is missing; an unreadable file is
// only worth a warning since the run can still proceed without
// carry-forward.
func LoadDayCommits(path string, roster Roster) map[string]string {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		slog.Warn("failed to read existing day record", "path", path, "err", err)
		return nil
	}

	var existing Record
	err = json.Unmarshal(raw, &existing)
	if err != nil {
		slog.Warn("failed to parse existing day record", "path", path, "err", err)
		return nil
	}

	commits := make(map[string]string)
	for _, entry := range existing.Entries {
		if entry.Git == "" || entry.Id < 0 || entry.Id >= len(roster) {
			continue
		}
		commits[roster[entry.Id].Id] = entry.Git
	}
	if len(commits) == 0 {
		return nil
	}
	return commits
}

// WriteDay persists a day record, replacing any previous version
// whole. Either the full record is written or nothing is.
func WriteDay(path string, record Record) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// LegacyRecord is the older store generation: one flat, denormalized
// leaderboard per day inside a single growing array file.
type LegacyRecord struct {
	Date    string                 `json:"date"`
	Stage   string                 `json:"stage"`
	Seed    string                 `json:"seed"`
	Entries []scrimpage.LegacyEntry `json:"entries"`
}

func legacyKey(r LegacyRecord) string {
	return r.Date + "__" + r.Stage + "__" + r.Seed
}

// ReadLegacyStore loads the growing array file. A missing file is an
// empty store; a file that is not a JSON array is fatal.
func ReadLegacyStore(path string) ([]LegacyRecord, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []LegacyRecord
	err = json.Unmarshal(raw, &records)
	if err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	return records, nil
}

// UpsertLegacy replaces the record sharing the new record's
// (date, stage, seed) key or appends it, then restores date order.
func UpsertLegacy(records []LegacyRecord, record LegacyRecord) []LegacyRecord {
	key := legacyKey(record)
	replaced := false
	for i, existing := range records {
		if legacyKey(existing) == key {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	return records
}

// WriteLegacyStore persists the array file the way the dashboard
// repository keeps it: indented, trailing newline.
func WriteLegacyStore(path string, records []LegacyRecord) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0644)
}
