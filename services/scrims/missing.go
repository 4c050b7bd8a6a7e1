package scrims

import (
	"encoding/json"
	"os"
)

// AppendMissingBots merges newly-seen missing bots into the diagnostic
// file, deduplicated by identity key across runs. The file is only
// rewritten when a new identity appears; it grows, it is never
// truncated. Returns how many new bots were recorded.
func AppendMissingBots(path string, missing []MissingBot) (int, error) {
	if len(missing) == 0 {
		return 0, nil
	}

	var existing []MissingBot
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	if len(raw) > 0 {
		err = json.Unmarshal(raw, &existing)
		if err != nil {
			return 0, err
		}
	}

	seen := make(map[string]bool, len(existing))
	for _, bot := range existing {
		seen[bot.Id] = true
	}

	added := 0
	for _, bot := range missing {
		if seen[bot.Id] {
			continue
		}
		seen[bot.Id] = true
		existing = append(existing, bot)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	out, err := json.MarshalIndent(existing, "", "\t")
	if err != nil {
		return 0, err
	}
	return added, os.WriteFile(path, out, 0644)
}
