package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"scrimstats/lib/configutil"
	"scrimstats/lib/telemetry"
	"scrimstats/services/scrims"

	"scrimstats/lib/scrapers/scrimfeed"
	"scrimstats/lib/scrapers/scrimpage"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl string `json:"base_url"`
	// directory holding the per-day record files
	DataDir    string `json:"data_dir"`
	RosterPath string `json:"roster_path"`
	// diagnostic file for feed bots absent from the roster
	MissingPath string `json:"missing_path"`
	// older-generation growing array store, used by `snapshot`
	LegacyStorePath string `json:"legacy_store_path"`
}

var defaultConfig = Config{
	BaseUrl:         "https://hiddengems.gymnasiumsteglitz.de",
	DataDir:         "json/data",
	RosterPath:      "json/bots.json",
	MissingPath:     "missing_bots.json",
	LegacyStorePath: "data.json",
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

func loadConfig() Config {
	config, err := configutil.Read[Config]("config.json5")
	if os.IsNotExist(err) {
		return defaultConfig
	}
	if err != nil {
		fatal("failed to read config", err)
	}
	if config.BaseUrl == "" {
		config.BaseUrl = defaultConfig.BaseUrl
	}
	if config.DataDir == "" {
		config.DataDir = defaultConfig.DataDir
	}
	if config.RosterPath == "" {
		config.RosterPath = defaultConfig.RosterPath
	}
	if config.MissingPath == "" {
		config.MissingPath = defaultConfig.MissingPath
	}
	if config.LegacyStorePath == "" {
		config.LegacyStorePath = defaultConfig.LegacyStorePath
	}
	return config
}

func newService(config Config, withRoster bool) scrims.Service {
	var roster scrims.Roster
	if withRoster {
		var err error
		roster, err = scrims.LoadRoster(config.RosterPath)
		if err != nil {
			fatal("failed to load roster", err)
		}
		slog.Info("loaded roster", "bots", len(roster))
	}

	return scrims.NewService(scrims.Options{
		Feed:        scrimfeed.NewClient(config.BaseUrl),
		Page:        scrimpage.NewClient(config.BaseUrl),
		Roster:      roster,
		DataDir:     config.DataDir,
		MissingPath: config.MissingPath,
		LegacyPath:  config.LegacyStorePath,
	})
}

func printSummary(summary scrims.RunSummary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"date", "stage", "seed", "entries", "unmatched", "new missing"})
	t.AppendRow(table.Row{
		summary.Date,
		summary.Stage,
		summary.Seed,
		summary.Entries,
		summary.Unmatched,
		summary.NewMissing,
	})
	t.Render()
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "scrimstats",
	Short: "scrimstats maintains the daily bot leaderboard history from the scrim server.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [date]",
	Short: "Ingest one day's scrim results into the per-day store.",
	Long: `Fetches the structured result feed for the given date (YYYY-MM-DD,
default today), recovers commit hashes from the scrims page when the
date is today, and writes the day's leaderboard record. Rerunning a
day overwrites its record in place, keeping commit hashes recovered
on earlier runs.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		date := scrims.Today()
		if len(args) == 1 {
			date = args[0]
		}
		slog.Info("processing scrim data", "date", date)

		config := loadConfig()
		service := newService(config, true)

		summary, err := service.Run(cmd.Context(), date)
		if err != nil {
			fatal("update failed", err)
		}
		printSummary(summary)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the scrims page into the legacy array store.",
	Long: `Scrapes today's full leaderboard straight off the scrims page and
upserts it into the growing array store, keyed by (date, stage, seed)
and kept sorted by date.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		service := newService(config, false)

		summary, err := service.Snapshot(cmd.Context())
		if err != nil {
			fatal("snapshot failed", err)
		}
		printSummary(summary)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(snapshotCmd)

	ctx := context.Background()
	tel, err := telemetry.SetupFromEnv(ctx, "scrimstats")
	if err != nil {
		fatal("failed to set up telemetry", err)
	}
	defer tel.Shutdown(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
