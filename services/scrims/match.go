package scrims

import (
	"context"
	"fmt"
	"log/slog"

	"scrimstats/lib/scrapers/scrimpage"
	"scrimstats/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Candidate is a feed participant as seen by the matcher: its identity
// key plus the weakly-correlated fields the page rows carry.
type Candidate struct {
	Id       string
	Score    int
	Name     string
	Author   string
	Location string
}

// MatchResult maps feed identity keys to commit hashes recovered from
// the page, plus a tally of page rows that matched nothing.
type MatchResult struct {
	Commits   map[string]string
	Unmatched int
}

func compositeKey(score int, name, author, location string) string {
	return fmt.Sprintf(
		"%d|%s|%s|%s",
		score,
		textutil.NormalizeMatch(name),
		textutil.NormalizeMatch(author),
		textutil.NormalizeMatch(location),
	)
}

// MatchCommits pairs page rows to feed candidates best-effort. Per row,
// in priority order:
//
//  1. if exactly one not-yet-matched candidate shares the row's score,
//     it is matched unconditionally;
//  2. otherwise the first not-yet-matched candidate with the same
//     (score, name, author, location) composite key is consumed.
//
// Each candidate is matched at most once, first row wins. Ties among
// duplicate-score, duplicate-identity rows therefore resolve
// first-seen-first-matched, and the unique-score shortcut can
// mis-attribute a hash when scores collide: both are accepted,
// documented limitations of a heuristic over two sources that share no
// real identifier. Unmatched rows are tallied, never an error.
func MatchCommits(candidates []Candidate, rows []scrimpage.Row) MatchResult {
	byScore := make(map[int][]string)
	byKey := make(map[string][]string)
	for _, c := range candidates {
		byScore[c.Score] = append(byScore[c.Score], c.Id)
		key := compositeKey(c.Score, c.Name, c.Author, c.Location)
		byKey[key] = append(byKey[key], c.Id)
	}

	commits := make(map[string]string)
	used := make(map[string]bool)
	unmatched := 0

	for _, row := range rows {
		var available []string
		for _, id := range byScore[row.Score] {
			if !used[id] {
				available = append(available, id)
			}
		}

		var matched string
		if len(available) == 1 {
			matched = available[0]
		} else {
			key := compositeKey(row.Score, row.Name, row.Author, row.Location)
			for _, id := range byKey[key] {
				if !used[id] {
					matched = id
					break
				}
			}
		}

		if matched == "" {
			unmatched++
			logUnmatchedHint(row, candidates, used)
			continue
		}
		used[matched] = true
		commits[matched] = row.Commit
	}

	return MatchResult{
		Commits:   commits,
		Unmatched: unmatched,
	}
}

// logUnmatchedHint names the closest unconsumed candidate for an
// unmatched row. Triage aid only, it never feeds back into matching.
func logUnmatchedHint(row scrimpage.Row, candidates []Candidate, used map[string]bool) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	rowName := textutil.NormalizeMatch(row.Name)
	var best float64
	var bestId string
	for _, c := range candidates {
		if used[c.Id] {
			continue
		}
		similarity := matchr.JaroWinkler(rowName, textutil.NormalizeMatch(c.Name), false)
		if similarity > best {
			best = similarity
			bestId = c.Id
		}
	}
	if bestId == "" {
		return
	}
	slog.Debug(
		"unmatched scrim page row",
		"row_name", row.Name,
		"row_score", row.Score,
		"closest_candidate", bestId,
		"similarity", best,
	)
}
