package scrims

import (
	"testing"

	"scrimstats/lib/scrapers/scrimpage"

	"github.com/stretchr/testify/require"
)

func TestMatchUniqueScoreShortcut(t *testing.T) {
	candidates := []Candidate{
		{Id: "a", Score: 500, Name: "Alpha"},
		{Id: "b", Score: 700, Name: "Beta"},
	}
	// names disagree entirely, the distinct score is enough
	rows := []scrimpage.Row{
		{Name: "Completely Different", Author: "?", Location: "?", Score: 700, Commit: "b-hash"},
		{Name: "Also Wrong", Author: "?", Location: "?", Score: 500, Commit: "a-hash"},
	}

	result := MatchCommits(candidates, rows)
	require.Equal(t, map[string]string{"a": "a-hash", "b": "b-hash"}, result.Commits)
	require.Zero(t, result.Unmatched)
}

func TestMatchCompositeKeyDisambiguation(t *testing.T) {
	candidates := []Candidate{
		{Id: "a", Score: 1000, Name: "Alpha", Author: "Ann", Location: "Berlin"},
		{Id: "b", Score: 1000, Name: "Beta", Author: "Bob", Location: "Bonn"},
	}
	rowAlpha := scrimpage.Row{Name: "alpha", Author: "ANN", Location: "berlin", Score: 1000, Commit: "alpha-hash"}
	rowBeta := scrimpage.Row{Name: "Beta", Author: "bob", Location: "Bonn", Score: 1000, Commit: "beta-hash"}

	expected := map[string]string{"a": "alpha-hash", "b": "beta-hash"}

	// either row order resolves to the same assignment
	result := MatchCommits(candidates, []scrimpage.Row{rowAlpha, rowBeta})
	require.Equal(t, expected, result.Commits)
	result = MatchCommits(candidates, []scrimpage.Row{rowBeta, rowAlpha})
	require.Equal(t, expected, result.Commits)
	require.Zero(t, result.Unmatched)
}

func TestMatchConsumesCandidatesOnce(t *testing.T) {
	candidates := []Candidate{
		{Id: "a", Score: 1000, Name: "Twin", Author: "X", Location: "Y"},
		{Id: "b", Score: 1000, Name: "Twin", Author: "X", Location: "Y"},
	}
	rows := []scrimpage.Row{
		{Name: "Twin", Author: "X", Location: "Y", Score: 1000, Commit: "first"},
		{Name: "Twin", Author: "X", Location: "Y", Score: 1000, Commit: "second"},
	}

	// identical identities resolve first-seen-first-matched; the point
	// is that no candidate receives two hashes
	result := MatchCommits(candidates, rows)
	require.Equal(t, map[string]string{"a": "first", "b": "second"}, result.Commits)
	require.Zero(t, result.Unmatched)
}

func TestMatchUnmatchedRowsAreTalliedNotFatal(t *testing.T) {
	candidates := []Candidate{
		{Id: "a", Score: 1000, Name: "Alpha"},
		{Id: "b", Score: 1000, Name: "Beta"},
	}
	rows := []scrimpage.Row{
		{Name: "Gamma", Author: "", Location: "", Score: 1000, Commit: "x"},
		{Name: "Delta", Author: "", Location: "", Score: 999, Commit: "y"},
	}

	result := MatchCommits(candidates, rows)
	require.Empty(t, result.Commits)
	require.Equal(t, 2, result.Unmatched)
}

func TestMatchUniqueScoreAfterConsumption(t *testing.T) {
	candidates := []Candidate{
		{Id: "a", Score: 1000, Name: "Alpha", Author: "Ann", Location: "Berlin"},
		{Id: "b", Score: 1000, Name: "Beta", Author: "Bob", Location: "Bonn"},
	}
	rows := []scrimpage.Row{
		{Name: "Alpha", Author: "Ann", Location: "Berlin", Score: 1000, Commit: "alpha-hash"},
		// after Alpha is consumed, Beta is the single remaining
		// candidate at 1000 and matches via the shortcut despite the
		// garbled name
		{Name: "B??ta", Author: "", Location: "", Score: 1000, Commit: "beta-hash"},
	}

	result := MatchCommits(candidates, rows)
	require.Equal(t, map[string]string{"a": "alpha-hash", "b": "beta-hash"}, result.Commits)
}
