package scrims

import (
	"log/slog"
	"math"
	"sort"

	"scrimstats/lib/scrapers/scrimfeed"
)

// DisqualifiedNonDeterministic is the round disqualification tag for
// bots whose results are not reproducible.
const DisqualifiedNonDeterministic = "non deterministic"

// MissingBot is a deterministic feed participant with no roster entry,
// queued to the diagnostic file for manual triage.
type MissingBot struct {
	Id   string              `json:"id"`
	Data scrimfeed.BotResult `json:"data"`
}

// TransformResult is a transformed day plus the participants that
// could not be attributed to the roster.
type TransformResult struct {
	Record  Record
	Missing []MissingBot
}

// nsToMs converts a nanosecond reading to the timing unit the
// dashboard displays, rounded to the nearest 0.1.
func nsToMs(ns int64) float64 {
	return math.Round(float64(ns)/10000) / 10
}

// Transform converts the raw feed into the persisted leaderboard
// shape. Stage metadata and the round-seed list come from the first
// deterministic participant; all deterministic participants share them
// by construction upstream, so a later mismatch is logged, not fatal.
// Non-deterministic roster members become fully disqualified
// placeholder entries. Entries end up sorted by score descending, ties
// keeping feed order.
func Transform(scrim *scrimfeed.Scrim, roster Roster, commits map[string]string) TransformResult {
	index := roster.IndexById()

	var stage, stageKey string
	var roundSeeds []string
	for _, bot := range scrim.Bots {
		if !bot.Deterministic || bot.Profile == nil {
			continue
		}
		if roundSeeds == nil {
			stage = bot.Profile.StageTitle
			stageKey = bot.Profile.StageKey
			for _, round := range bot.Profile.Rounds {
				roundSeeds = append(roundSeeds, round.Seed)
			}
			continue
		}
		if bot.Profile.StageKey != stageKey {
			slog.Debug(
				"stage metadata disagrees across profiles",
				"bot", bot.ID,
				"stage_key", bot.Profile.StageKey,
				"expected", stageKey,
			)
		}
	}

	var entries []Entry
	var missing []MissingBot
	for _, bot := range scrim.Bots {
		botIndex, known := index[bot.ID]
		if !known {
			// non-deterministic strangers carry no useful signal
			if bot.Deterministic {
				missing = append(missing, MissingBot{Id: bot.ID, Data: bot})
			}
			continue
		}
		git := commits[bot.ID]

		if !bot.Deterministic {
			rounds := make([]RoundResult, len(roundSeeds))
			for i := range rounds {
				rounds[i] = RoundResult{
					Disqualified: DisqualifiedNonDeterministic,
					T:            [2]float64{0, 0},
				}
			}
			entries = append(entries, Entry{
				Id:     botIndex,
				Git:    git,
				Rounds: rounds,
			})
			continue
		}

		profile := bot.Profile
		if profile == nil {
			continue
		}
		rounds := make([]RoundResult, len(profile.Rounds))
		for i, r := range profile.Rounds {
			disqualified := ""
			if r.DisqualifiedFor != nil {
				disqualified = *r.DisqualifiedFor
			}
			rounds[i] = RoundResult{
				S:            r.Score,
				Gu:           r.GemUtilization,
				Fc:           r.FloorCoverage,
				Disqualified: disqualified,
				T: [2]float64{
					nsToMs(r.ResponseTimeStats.Median),
					nsToMs(r.ResponseTimeStats.Max),
				},
			}
		}
		entries = append(entries, Entry{
			Id:     botIndex,
			Score:  profile.TotalScore,
			Gu:     profile.GemUtilizationMean,
			Fc:     profile.FloorCoverageMean,
			Git:    git,
			Rounds: rounds,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return TransformResult{
		Record: Record{
			Date:       scrim.Date,
			Stage:      stage,
			StageKey:   stageKey,
			Seed:       scrim.ScrimSeed,
			RoundSeeds: roundSeeds,
			Entries:    entries,
		},
		Missing: missing,
	}
}

// Candidates builds the matcher's view of the feed: every profiled
// participant with its display name (profile first, roster fallback)
// and the roster's author/location when the bot is known.
func Candidates(scrim *scrimfeed.Scrim, roster Roster) []Candidate {
	index := roster.IndexById()

	var candidates []Candidate
	for _, bot := range scrim.Bots {
		if bot.Profile == nil {
			continue
		}
		c := Candidate{
			Id:    bot.ID,
			Score: bot.Profile.TotalScore,
			Name:  bot.Profile.Name,
		}
		if i, known := index[bot.ID]; known {
			if c.Name == "" {
				c.Name = roster[i].Name
			}
			c.Author = roster[i].Author
			c.Location = roster[i].Location
		}
		candidates = append(candidates, c)
	}
	return candidates
}
