package scrims

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scrimstats/lib/scrapers/scrimfeed"
	"scrimstats/lib/scrapers/scrimpage"
	"scrimstats/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("scrimstats.services.scrims")

type Service struct {
	feed   *scrimfeed.Client
	page   *scrimpage.Client
	roster Roster

	dataDir     string
	missingPath string
	legacyPath  string
}

type Options struct {
	Feed   *scrimfeed.Client
	Page   *scrimpage.Client
	Roster Roster

	// DataDir holds the per-day record files.
	DataDir string
	// MissingPath is the missing-bots diagnostic file.
	MissingPath string
	// LegacyPath is the older-generation growing array file.
	LegacyPath string
}

func NewService(options Options) Service {
	return Service{
		feed:        options.Feed,
		page:        options.Page,
		roster:      options.Roster,
		dataDir:     options.DataDir,
		missingPath: options.MissingPath,
		legacyPath:  options.LegacyPath,
	}
}

// RunSummary is what the operator sees after a successful run.
type RunSummary struct {
	Date       string
	Stage      string
	Seed       string
	Entries    int
	Unmatched  int
	NewMissing int
}

// Today returns the current local calendar day in YYYY-MM-DD form.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// Run ingests one day: fetch the feed (fatal on failure) and, when the
// date is today, the scrims page (best-effort), reconcile commit
// hashes, transform and persist. Hashes recovered on earlier runs
// survive runs where the page yields nothing.
func (s Service) Run(ctx context.Context, date string) (RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("date", date))

	outPath := DayPath(s.dataDir, date)
	carried := LoadDayCommits(outPath, s.roster)
	if carried != nil {
		slog.Info("loaded existing commit hashes", "count", len(carried))
	}

	var scrim *scrimfeed.Scrim
	var feedErr error
	var rows []scrimpage.Row
	var pageErr error

	// the page only shows today's scrim, so a backfill run skips it
	fetchPage := date == Today()

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scrim, feedErr = s.feed.Fetch(ctx, date)
	}()
	if fetchPage {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, pageErr = s.page.FetchRows(ctx)
		}()
	}
	wg.Wait()

	if feedErr != nil {
		return RunSummary{}, feedErr
	}
	slog.Info("fetched scrim feed", "date", date, "bots", len(scrim.Bots))

	commits := make(map[string]string)
	unmatched := 0
	if fetchPage {
		if pageErr != nil {
			slog.Warn("failed to fetch scrim page commit hashes, keeping previously recovered ones", "err", pageErr)
		} else {
			result := MatchCommits(Candidates(scrim, s.roster), rows)
			commits = result.Commits
			unmatched = result.Unmatched
			if unmatched > 0 {
				slog.Warn("scrim page rows unmatched", "count", unmatched)
			}
		}
	}

	// page hashes win, stored ones fill the gaps
	for id, git := range carried {
		if _, ok := commits[id]; !ok {
			commits[id] = git
		}
	}

	result := Transform(scrim, s.roster, commits)
	err := WriteDay(outPath, result.Record)
	if err != nil {
		return RunSummary{}, err
	}
	slog.Info("wrote day record", "path", outPath, "entries", len(result.Record.Entries))

	added, err := AppendMissingBots(s.missingPath, result.Missing)
	if err != nil {
		return RunSummary{}, err
	}
	if added > 0 {
		slog.Info("recorded new missing bots", "path", s.missingPath, "count", added)
	}

	return RunSummary{
		Date:       result.Record.Date,
		Stage:      result.Record.Stage,
		Seed:       result.Record.Seed,
		Entries:    len(result.Record.Entries),
		Unmatched:  unmatched,
		NewMissing: added,
	}, nil
}

// Snapshot runs the older-generation pipeline: capture the full page
// leaderboard and upsert it into the growing array store.
func (s Service) Snapshot(ctx context.Context) (RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Snapshot")
	defer span.End()

	snapshot, err := s.page.FetchSnapshot(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	records, err := ReadLegacyStore(s.legacyPath)
	if err != nil {
		return RunSummary{}, err
	}
	records = UpsertLegacy(records, LegacyRecord{
		Date:    snapshot.Date,
		Stage:   snapshot.Stage,
		Seed:    snapshot.Seed,
		Entries: snapshot.Entries,
	})
	err = WriteLegacyStore(s.legacyPath, records)
	if err != nil {
		return RunSummary{}, err
	}
	slog.Info(
		"updated legacy store",
		"path", s.legacyPath,
		"entries", len(snapshot.Entries),
		"date", snapshot.Date,
	)

	return RunSummary{
		Date:    snapshot.Date,
		Stage:   snapshot.Stage,
		Seed:    snapshot.Seed,
		Entries: len(snapshot.Entries),
	}, nil
}
