package scrims

import (
	"encoding/json"
	"fmt"
	"os"
)

// RosterBot is one entry of the roster file. The roster is the join
// table between feed identity keys and display metadata: persisted
// records reference bots by their position in this list.
type RosterBot struct {
	Id       string `json:"id"`
	Student  bool   `json:"student"`
	Emoji    string `json:"emoji"`
	Name     string `json:"name"`
	Author   string `json:"author"`
	Location string `json:"location"`
	Language string `json:"language"`
}

// Roster is loaded once at process start and threaded through the
// pipeline as an immutable value.
type Roster []RosterBot

func LoadRoster(path string) (Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var roster Roster
	err = json.Unmarshal(raw, &roster)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return roster, nil
}

// IndexById maps feed identity keys to roster indices.
func (r Roster) IndexById() map[string]int {
	index := make(map[string]int, len(r))
	for i, bot := range r {
		index[bot.Id] = i
	}
	return index
}
