// Package scrims reconciles the day's structured scrim feed with the
// scrims HTML page and maintains the persisted leaderboard history the
// dashboard renders.
package scrims

// Record is the persisted leaderboard for one day. Entries are sorted
// by score descending and reference bots by roster index.
type Record struct {
	Date       string   `json:"date"`
	Stage      string   `json:"stage"`
	StageKey   string   `json:"stageKey"`
	Seed       string   `json:"seed"`
	RoundSeeds []string `json:"roundSeeds"`
	Entries    []Entry  `json:"entries"`
}

// Entry is one bot's result within a Record. Id is the bot's array
// index in the roster file, not its feed identity key. Git may be
// empty when no commit hash was recoverable.
type Entry struct {
	Id     int           `json:"id"`
	Score  int           `json:"score"`
	Gu     float64       `json:"gu"`
	Fc     float64       `json:"fc"`
	Git    string        `json:"git"`
	Rounds []RoundResult `json:"rounds"`
}

// RoundResult is one round's outcome. T is a two-element timing
// summary: median and maximum response time in milliseconds.
type RoundResult struct {
	S            int        `json:"s"`
	Gu           float64    `json:"gu"`
	Fc           float64    `json:"fc"`
	Disqualified string     `json:"disqualified,omitempty"`
	T            [2]float64 `json:"t"`
}
