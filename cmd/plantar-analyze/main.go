// Command plantar-analyze loads plantar-pressure exports, detects gait events
// and writes the workbook or csv exports for every recording.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"plantarcli/internal/config"
	"plantarcli/internal/files"
	"plantarcli/internal/infrastructure"
	"plantarcli/internal/playback"
	"plantarcli/internal/services"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "plantar-analyze:", err)
		}
		os.Exit(1)
	}
}

// RecordingResult is one line of the run summary
type RecordingResult struct {
	File      string   `json:"file"`
	ID        string   `json:"id"`
	Samples   int      `json:"samples"`
	Skipped   int      `json:"skipped_rows"`
	Duplicate bool     `json:"duplicate"`
	Events    int      `json:"events"`
	Cadence   float64  `json:"cadence"`
	Exports   []string `json:"exports"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plantar-analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "export directory (defaults to paths.export_dir)")
	format := fs.String("format", "xlsx", "export format: xlsx | csv")
	sheet := fs.String("sheet", "", "csv only: pressure | events | summary (default all three)")
	preset := fs.String("preset", "", "threshold preset: standard | legacy")
	initialContact := fs.Float64("initial-contact", 0, "initial contact threshold in kPa (overrides the preset)")
	toeOff := fs.Float64("toe-off", 0, "toe off threshold in kPa (overrides the preset)")
	overrides := fs.String("overrides", "", "region override YAML file")
	concurrency := fs.Int("concurrency", 0, "parallel file loads (defaults to analysis.concurrency)")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	verbose := fs.Bool("v", false, "debug logging")
	version := fs.Bool("version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: plantar-analyze [flags] recording.xlsx|csv|dir ...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return services.ErrNoFilesToLoad
	}
	if *format != "xlsx" && *format != "csv" {
		return fmt.Errorf("%q: %w", *format, services.ErrExportFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if *out != "" {
		cfg.Paths.ExportDir = *out
	}
	if *preset != "" {
		cfg.Analysis.ThresholdPreset = *preset
	}
	if *initialContact > 0 {
		cfg.Analysis.InitialContact = *initialContact
	}
	if *toeOff > 0 {
		cfg.Analysis.ToeOff = *toeOff
	}
	if *overrides != "" {
		cfg.Analysis.RegionOverrides = *overrides
	}
	if *concurrency > 0 {
		cfg.Analysis.Concurrency = *concurrency
	}
	if err := os.MkdirAll(cfg.Paths.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := infrastructure.NewLoggerWithWriter(stderr, &slog.HandlerOptions{Level: level})

	store := playback.NewStore(logger)
	svc, err := services.NewAnalysisService(cfg, services.AnalysisDeps{
		Store:  store,
		Player: playback.NewPlayer(cfg.Playback.Speed),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	paths, err := files.NewDiscovery("").Expand(fs.Args())
	if err != nil {
		return err
	}
	loaded, err := svc.LoadFiles(ctx, paths, services.LoadOptions{})
	if err != nil {
		return err
	}

	query := api.ExportQuery{Format: *format, Sheet: *sheet}
	results := make([]RecordingResult, 0, len(loaded))
	for i, resp := range loaded {
		res := RecordingResult{
			File:      paths[i],
			ID:        resp.Recording.ID,
			Samples:   resp.Recording.Samples,
			Skipped:   resp.Recording.SkippedRows,
			Duplicate: resp.Duplicate,
		}
		if !resp.Duplicate {
			report, err := svc.Report(ctx, resp.Recording.Index, query.AnalysisQuery)
			if err != nil {
				return err
			}
			res.Events = len(report.Events)
			res.Cadence = report.Parameters.Cadence
			if res.Exports, err = svc.ExportToDir(ctx, resp.Recording.Index, query); err != nil {
				return err
			}
		}
		results = append(results, res)
	}
	return printSummary(stdout, results, *asJSON)
}

func printSummary(w io.Writer, results []RecordingResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSAMPLES\tSKIPPED\tEVENTS\tCADENCE\tEXPORTS")
	for _, r := range results {
		if r.Duplicate {
			fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\tduplicate of %s\n", r.File, r.Samples, r.Skipped, r.ID)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\t%d\n", r.File, r.Samples, r.Skipped, r.Events, r.Cadence, len(r.Exports))
	}
	return tw.Flush()
}
