package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"plantarcli/internal/config"
	"plantarcli/internal/dataprocessing"
	"plantarcli/internal/exporter"
	"plantarcli/internal/gait"
	"plantarcli/internal/infrastructure"
	"plantarcli/internal/playback"
	"plantarcli/internal/regions"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/domain"
	"plantarcli/pkg/contracts/events"
)

// Broadcaster publishes messages to connected clients
type Broadcaster interface {
	Broadcast(msg events.WebSocketMessage)
}

// LoadOptions customizes a single load
type LoadOptions struct {
	// Overrides reassigns sensors to regions for this load only, layered on
	// top of the configured overrides. Loads with overrides skip duplicate
	// detection since the same bytes aggregate differently.
	Overrides map[int]domain.Region
}

// AnalysisDeps are the collaborators of AnalysisService. Store and Player
// are required; the rest fall back to no-op or default implementations.
type AnalysisDeps struct {
	Store       *playback.Store
	Player      *playback.Player
	Cache       *gait.Cache
	Broadcaster Broadcaster
	Tracer      trace.Tracer
	Metrics     *infrastructure.AnalysisMetrics
	Logger      *slog.Logger
}

// ExportFile is a rendered export ready to be sent
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// AnalysisService ingests recordings into the dataset store and serves
// filters, gait analysis and exports over the active recording.
type AnalysisService struct {
	parser      *dataprocessing.Parser
	forceParser *dataprocessing.Parser
	regionSet   regions.RegionSet
	layout      regions.Layout
	thresholds  domain.GaitEventThresholds
	concurrency int
	maxUpload   int64
	exportDir   string
	csv         *exporter.CSVWriter

	store       *playback.Store
	player      *playback.Player
	cache       *gait.Cache
	broadcaster Broadcaster
	tracer      trace.Tracer
	metrics     *infrastructure.AnalysisMetrics
	logger      *slog.Logger
}

// NewAnalysisService resolves the configured thresholds and region layout.
// A bad preset, override file or layout fails here rather than on first load.
func NewAnalysisService(cfg *config.Config, deps AnalysisDeps) (*AnalysisService, error) {
	if deps.Store == nil || deps.Player == nil {
		return nil, fmt.Errorf("analysis service needs a store and a player: %w", ErrInvalidInput)
	}
	logger := infrastructure.WithComponent(deps.Logger, "analysis_service")

	thresholds, err := domain.ThresholdsForPreset(domain.ThresholdPreset(strings.ToLower(cfg.Analysis.ThresholdPreset)))
	if err != nil {
		return nil, err
	}
	thresholds = thresholds.WithOverrides(cfg.Analysis.InitialContact, cfg.Analysis.ToeOff)

	set := regions.Default()
	if path := cfg.Analysis.RegionOverrides; path != "" {
		overrides, err := regions.LoadOverrides(path)
		if err != nil {
			return nil, fmt.Errorf("region overrides %s: %w", path, err)
		}
		if set, err = set.WithOverrides(overrides); err != nil {
			return nil, fmt.Errorf("region overrides %s: %w", path, err)
		}
		logger.Info("region overrides loaded",
			slog.String("path", path),
			slog.Int("sensors", len(overrides)))
	}
	layout := regions.Layout{
		SensorsPerFoot: cfg.Layout.SensorsPerFoot,
		LeftOffset:     cfg.Layout.LeftOffset,
		RightStride:    cfg.Layout.RightStride,
	}
	if _, err := regions.NewAggregator(set, layout); err != nil {
		return nil, fmt.Errorf("invalid sensor layout: %w", err)
	}

	svc := &AnalysisService{
		parser:      dataprocessing.NewParser(cfg.Layout.MetadataRows, logger),
		forceParser: dataprocessing.NewParser(dataprocessing.DetectHeader, logger),
		regionSet:   set,
		layout:      layout,
		thresholds:  thresholds,
		concurrency: max(cfg.Analysis.Concurrency, 1),
		maxUpload:   cfg.Analysis.MaxUploadBytes,
		exportDir:   cfg.Paths.ExportDir,
		csv:         exporter.NewCSVWriter(cfg.Paths.ExportDir, logger),
		store:       deps.Store,
		player:      deps.Player,
		cache:       deps.Cache,
		broadcaster: deps.Broadcaster,
		tracer:      deps.Tracer,
		metrics:     deps.Metrics,
		logger:      logger,
	}
	if svc.cache == nil {
		svc.cache = gait.NewCache(cfg.Analysis.CacheSize)
	}
	if svc.tracer == nil {
		svc.tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	if svc.metrics == nil {
		svc.metrics = infrastructure.NoopAnalysisMetrics()
	}
	return svc, nil
}

// DefaultThresholds returns the configured preset with its overrides
func (s *AnalysisService) DefaultThresholds() domain.GaitEventThresholds {
	return s.thresholds
}

// Thresholds resolves q against the configured defaults. A preset replaces
// the defaults; explicit values then override single thresholds.
func (s *AnalysisService) Thresholds(q api.AnalysisQuery) (domain.GaitEventThresholds, error) {
	t := s.thresholds
	if q.Preset != "" {
		var err error
		if t, err = domain.ThresholdsForPreset(domain.ThresholdPreset(strings.ToLower(q.Preset))); err != nil {
			return domain.GaitEventThresholds{}, err
		}
	}
	if q.InitialContact != nil {
		if !positive(*q.InitialContact) {
			return domain.GaitEventThresholds{}, fmt.Errorf("initial contact threshold %v: %w", *q.InitialContact, ErrInvalidInput)
		}
		t.InitialContact = *q.InitialContact
	}
	if q.ToeOff != nil {
		if !positive(*q.ToeOff) {
			return domain.GaitEventThresholds{}, fmt.Errorf("toe off threshold %v: %w", *q.ToeOff, ErrInvalidInput)
		}
		t.ToeOff = *q.ToeOff
	}
	return t, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// LoadFile reads path and loads it like an upload
func (s *AnalysisService) LoadFile(ctx context.Context, path string, opts LoadOptions) (api.LoadResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.LoadResponse{}, fmt.Errorf("read %s: %w", path, err)
	}
	return s.Load(ctx, filepath.Base(path), data, opts)
}

// Load ingests an export and makes it the active recording. Bytes that were
// loaded before re-activate the existing recording instead.
func (s *AnalysisService) Load(ctx context.Context, name string, data []byte, opts LoadOptions) (api.LoadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.load",
		trace.WithAttributes(attribute.String("file", name), attribute.Int("bytes", len(data))))
	defer span.End()

	sum := dataprocessing.Checksum(data)
	if idx, ok := s.duplicate(sum, opts); ok {
		rec, err := s.activate(ctx, idx, events.DatasetSelected)
		if err != nil {
			return api.LoadResponse{}, err
		}
		s.logger.InfoContext(ctx, "duplicate upload, re-activating recording",
			slog.String("file", name),
			slog.String("recording_id", rec.ID),
			slog.Int("index", idx))
		span.SetAttributes(attribute.Bool("duplicate", true))
		return api.LoadResponse{Recording: api.Summarize(rec, idx, true), Duplicate: true}, nil
	}

	rec, err := s.ingest(ctx, name, data, sum, opts)
	if err != nil {
		infrastructure.RecordOperationError(ctx, s.metrics, "load", err)
		return api.LoadResponse{}, err
	}
	return api.LoadResponse{Recording: s.add(ctx, rec)}, nil
}

// Upload is one named export held in memory
type Upload struct {
	Name string
	Data []byte
}

// LoadFiles ingests several exports concurrently and adds them in the order
// given. Any failure aborts the batch before anything is added.
func (s *AnalysisService) LoadFiles(ctx context.Context, paths []string, opts LoadOptions) ([]api.LoadResponse, error) {
	if len(paths) == 0 {
		return nil, ErrNoFilesToLoad
	}
	ctx, span := s.tracer.Start(ctx, "analysis.load_batch",
		trace.WithAttributes(attribute.Int("files", len(paths))))
	defer span.End()

	recs, err := s.ingestAll(ctx, len(paths), opts, func(i int) (string, []byte, error) {
		data, err := os.ReadFile(paths[i])
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", paths[i], err)
		}
		return filepath.Base(paths[i]), data, nil
	})
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, recs, opts)
}

// LoadUploads is LoadFiles for exports already in memory: every upload is
// ingested before any of them is added.
func (s *AnalysisService) LoadUploads(ctx context.Context, uploads []Upload, opts LoadOptions) ([]api.LoadResponse, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFilesToLoad
	}
	ctx, span := s.tracer.Start(ctx, "analysis.load_uploads",
		trace.WithAttributes(attribute.Int("files", len(uploads))))
	defer span.End()

	recs, err := s.ingestAll(ctx, len(uploads), opts, func(i int) (string, []byte, error) {
		return uploads[i].Name, uploads[i].Data, nil
	})
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, recs, opts)
}

// ingestAll ingests n exports concurrently; read supplies export i
func (s *AnalysisService) ingestAll(ctx context.Context, n int, opts LoadOptions, read func(i int) (string, []byte, error)) ([]*domain.ProcessedRecording, error) {
	recs := make([]*domain.ProcessedRecording, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range n {
		g.Go(func() error {
			name, data, err := read(i)
			if err != nil {
				return err
			}
			rec, err := s.ingest(gctx, name, data, dataprocessing.Checksum(data), opts)
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordOperationError(ctx, s.metrics, "load_batch", err)
		return nil, err
	}
	return recs, nil
}

// commit adds ingested recordings in order; repeats of loaded bytes are
// reported as duplicates
func (s *AnalysisService) commit(ctx context.Context, recs []*domain.ProcessedRecording, opts LoadOptions) ([]api.LoadResponse, error) {
	out := make([]api.LoadResponse, 0, len(recs))
	for _, rec := range recs {
		if idx, ok := s.duplicate(rec.Checksum, opts); ok {
			existing, err := s.store.Get(idx)
			if err != nil {
				return out, err
			}
			out = append(out, api.LoadResponse{Recording: api.Summarize(existing, idx, false), Duplicate: true})
			continue
		}
		out = append(out, api.LoadResponse{Recording: s.add(ctx, rec)})
	}
	active := s.store.ActiveIndex()
	for i := range out {
		out[i].Recording.Active = out[i].Recording.Index == active
	}
	return out, nil
}

func (s *AnalysisService) duplicate(sum string, opts LoadOptions) (int, bool) {
	if len(opts.Overrides) > 0 {
		return -1, false
	}
	return s.store.FindByChecksum(sum)
}

// ingest parses and aggregates one export with the region set resolved for this load
func (s *AnalysisService) ingest(ctx context.Context, name string, data []byte, sum string, opts LoadOptions) (*domain.ProcessedRecording, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.ingest",
		trace.WithAttributes(attribute.String("file", name)))
	defer span.End()
	start := time.Now()

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyUpload)
	}
	if s.maxUpload > 0 && int64(len(data)) > s.maxUpload {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", name, len(data), s.maxUpload, ErrInvalidInput)
	}

	set := s.regionSet
	if len(opts.Overrides) > 0 {
		var err error
		if set, err = set.WithOverrides(opts.Overrides); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	aggregator, err := regions.NewAggregator(set, s.layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	table, err := s.parser.Parse(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, readError(name, err)
	}
	rec, err := dataprocessing.NewProcessor(aggregator, s.logger).Process(ctx, table, name)
	if err != nil {
		return nil, readError(name, err)
	}
	rec.Checksum = sum

	s.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RowsSkipped.Add(ctx, int64(rec.SkippedRows))
	span.SetAttributes(
		attribute.Int("samples", rec.Len()),
		attribute.Int("skipped_rows", rec.SkippedRows))
	return rec, nil
}

// readError keeps known input errors matchable and tags the rest as unreadable
func readError(name string, err error) error {
	switch {
	case errors.Is(err, dataprocessing.ErrMissingTimeColumn),
		errors.Is(err, dataprocessing.ErrNoHeaderRow),
		errors.Is(err, dataprocessing.ErrUnsupportedFormat),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("load %s: %w", name, err)
	default:
		return fmt.Errorf("load %s: %w: %w", name, ErrUnreadable, err)
	}
}

func (s *AnalysisService) add(ctx context.Context, rec *domain.ProcessedRecording) api.RecordingSummary {
	idx := s.store.Add(rec)
	s.player.Load(rec.StartTime(), rec.EndTime())
	s.metrics.RecordingsLoaded.Add(ctx, 1)
	s.publish(ctx, events.DatasetLoaded, rec)
	return api.Summarize(rec, idx, true)
}

// AttachForce merges a force / COP export into the recording at index, or the
// active recording when index is negative. The merge survives Reset.
func (s *AnalysisService) AttachForce(ctx context.Context, index int, name string, data []byte) (api.RecordingSummary, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.attach_force",
		trace.WithAttributes(attribute.String("file", name)))
	defer span.End()

	if index < 0 {
		var err error
		if _, index, err = s.store.Active(); err != nil {
			return api.RecordingSummary{}, err
		}
	}
	if len(data) == 0 {
		return api.RecordingSummary{}, fmt.Errorf("%s: %w", name, ErrEmptyUpload)
	}
	table, err := s.forceParser.Parse(ctx, name, bytes.NewReader(data))
	if err != nil {
		return api.RecordingSummary{}, readError(name, err)
	}
	force, err := dataprocessing.ParseForce(table)
	if err != nil {
		return api.RecordingSummary{}, readError(name, err)
	}
	rec, err := s.store.Augment(index, dataprocessing.AttachForce(force))
	if err != nil {
		infrastructure.RecordOperationError(ctx, s.metrics, "attach_force", err)
		return api.RecordingSummary{}, err
	}

	s.logger.InfoContext(ctx, "force data attached",
		slog.String("recording_id", rec.ID),
		slog.String("file", name),
		slog.Int("force_samples", len(force)))
	s.publish(ctx, events.DatasetFiltered, rec)
	return api.Summarize(rec, index, index == s.store.ActiveIndex()), nil
}

// Recordings lists every loaded recording
func (s *AnalysisService) Recordings() api.DatasetResponse {
	recs := s.store.List()
	active := s.store.ActiveIndex()
	resp := api.DatasetResponse{
		ActiveIndex: active,
		Recordings:  make([]api.RecordingSummary, len(recs)),
	}
	for i, rec := range recs {
		resp.Recordings[i] = api.Summarize(rec, i, i == active)
	}
	return resp
}

// Select makes the recording at index active and rewinds playback onto it
func (s *AnalysisService) Select(ctx context.Context, index int) (api.RecordingSummary, error) {
	rec, err := s.activate(ctx, index, events.DatasetSelected)
	if err != nil {
		return api.RecordingSummary{}, err
	}
	return api.Summarize(rec, index, true), nil
}

func (s *AnalysisService) activate(ctx context.Context, index int, change events.DatasetChange) (*domain.ProcessedRecording, error) {
	if err := s.store.SetActive(index); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(index)
	if err != nil {
		return nil, err
	}
	s.player.Load(rec.StartTime(), rec.EndTime())
	s.publish(ctx, change, rec)
	return rec, nil
}

// Remove drops the recording at index. Playback follows the new active
// recording, or unloads when none is left.
func (s *AnalysisService) Remove(ctx context.Context, index int) (api.DatasetResponse, error) {
	var activeID string
	if rec, _, err := s.store.Active(); err == nil {
		activeID = rec.ID
	}
	removed, err := s.store.Remove(index)
	if err != nil {
		return api.DatasetResponse{}, err
	}
	s.cache.Invalidate(removed.ID)

	// removing another entry only shifts indices; playback carries on
	switch rec, _, err := s.store.Active(); {
	case err != nil:
		s.player.Unload()
	case rec.ID != activeID:
		s.player.Load(rec.StartTime(), rec.EndTime())
	}
	s.publish(ctx, events.DatasetRemoved, removed)
	return s.Recordings(), nil
}

// Trim keeps only the active samples with start <= time <= end
func (s *AnalysisService) Trim(ctx context.Context, start, end float64) (api.RecordingSummary, error) {
	return s.applyFilter(ctx, "trim", dataprocessing.TrimRange(start, end), true)
}

// NoiseFloor drops active readings below floor kPa and re-aggregates
func (s *AnalysisService) NoiseFloor(ctx context.Context, floor float64) (api.RecordingSummary, error) {
	return s.applyFilter(ctx, "noise_floor", dataprocessing.NoiseFloor(floor), false)
}

// applyFilter replaces the active working copy. Filters that move the time
// bounds reload the player.
func (s *AnalysisService) applyFilter(ctx context.Context, name string, fn dataprocessing.Filter, reload bool) (api.RecordingSummary, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.filter",
		trace.WithAttributes(attribute.String("filter", name)))
	defer span.End()

	rec, err := s.store.ApplyFilter(fn)
	if err != nil {
		infrastructure.RecordOperationError(ctx, s.metrics, "filter", err)
		return api.RecordingSummary{}, err
	}
	s.metrics.FiltersApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("filter", name)))
	if reload {
		s.player.Load(rec.StartTime(), rec.EndTime())
	}
	s.publish(ctx, events.DatasetFiltered, rec)
	return api.Summarize(rec, s.store.ActiveIndex(), true), nil
}

// Reset restores the active recording as loaded
func (s *AnalysisService) Reset(ctx context.Context) (api.RecordingSummary, error) {
	rec, err := s.store.Reset()
	if err != nil {
		return api.RecordingSummary{}, err
	}
	s.player.Load(rec.StartTime(), rec.EndTime())
	s.publish(ctx, events.DatasetReset, rec)
	return api.Summarize(rec, s.store.ActiveIndex(), true), nil
}

// Sample returns the active sample at or before t
func (s *AnalysisService) Sample(t float64) (api.SampleResponse, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return api.SampleResponse{}, fmt.Errorf("time %v: %w", t, ErrInvalidInput)
	}
	sample, err := s.store.Lookup(t)
	if err != nil {
		return api.SampleResponse{}, err
	}
	return api.NewSampleResponse(t, sample), nil
}

// analyze runs the memoized gait analysis of the recording at index, or of
// the active recording when index is negative
func (s *AnalysisService) analyze(ctx context.Context, index int, q api.AnalysisQuery) (*domain.ProcessedRecording, domain.GaitEventThresholds, gait.Result, error) {
	thresholds, err := s.Thresholds(q)
	if err != nil {
		return nil, thresholds, gait.Result{}, err
	}
	rec, err := s.recording(index)
	if err != nil {
		return nil, thresholds, gait.Result{}, err
	}

	ctx, span := s.tracer.Start(ctx, "analysis.gait", trace.WithAttributes(
		attribute.String("recording_id", rec.ID),
		attribute.Int("revision", rec.Revision),
		attribute.Float64("threshold.initial_contact", thresholds.InitialContact),
		attribute.Float64("threshold.toe_off", thresholds.ToeOff)))
	defer span.End()

	start := time.Now()
	res := s.cache.Analyze(rec, thresholds)
	s.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("events", len(res.Events)))
	return rec, thresholds, res, nil
}

func (s *AnalysisService) recording(index int) (*domain.ProcessedRecording, error) {
	if index < 0 {
		rec, _, err := s.store.Active()
		return rec, err
	}
	return s.store.Get(index)
}

// Events detects gait events on the active recording
func (s *AnalysisService) Events(ctx context.Context, q api.AnalysisQuery) (api.EventsResponse, error) {
	rec, thresholds, res, err := s.analyze(ctx, -1, q)
	if err != nil {
		return api.EventsResponse{}, err
	}
	return api.EventsResponse{
		RecordingID: rec.ID,
		Revision:    rec.Revision,
		Thresholds:  thresholds,
		Count:       len(res.Events),
		Events:      res.Events,
	}, nil
}

// Parameters computes the temporal gait parameters of the active recording
func (s *AnalysisService) Parameters(ctx context.Context, q api.AnalysisQuery) (api.ParametersResponse, error) {
	rec, thresholds, res, err := s.analyze(ctx, -1, q)
	if err != nil {
		return api.ParametersResponse{}, err
	}
	return api.ParametersResponse{
		RecordingID: rec.ID,
		Revision:    rec.Revision,
		Thresholds:  thresholds,
		Parameters:  res.Parameters,
	}, nil
}

// Report assembles the exportable report of the recording at index
// (negative for the active recording)
func (s *AnalysisService) Report(ctx context.Context, index int, q api.AnalysisQuery) (exporter.Report, error) {
	rec, thresholds, res, err := s.analyze(ctx, index, q)
	if err != nil {
		return exporter.Report{}, err
	}
	return exporter.Report{
		Recording:  rec,
		Thresholds: thresholds,
		Events:     res.Events,
		Parameters: res.Parameters,
	}, nil
}

// exportPlan is a parsed export query
type exportPlan struct {
	format string
	// sheet is empty for every sheet
	sheet exporter.SheetKind
}

func parseExportQuery(q api.ExportQuery) (exportPlan, error) {
	plan := exportPlan{format: strings.ToLower(q.Format)}
	switch plan.format {
	case "":
		plan.format = "xlsx"
	case "xlsx", "csv":
	default:
		return plan, fmt.Errorf("%q: %w", q.Format, ErrExportFormat)
	}
	if q.Sheet != "" {
		kind, err := exporter.ParseSheetKind(q.Sheet)
		if err != nil {
			return plan, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		plan.sheet = kind
	}
	return plan, nil
}

// Export renders the active recording as a workbook with every sheet, or
// one sheet as csv (the pressure sheet unless another is named)
func (s *AnalysisService) Export(ctx context.Context, q api.ExportQuery) (*ExportFile, error) {
	plan, err := parseExportQuery(q)
	if err != nil {
		return nil, err
	}
	report, err := s.Report(ctx, -1, q.AnalysisQuery)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "analysis.export",
		trace.WithAttributes(attribute.String("format", plan.format)))
	defer span.End()

	base := exportBase(report.Recording)
	var file *ExportFile
	switch plan.format {
	case "csv":
		kind := plan.sheet
		if kind == "" {
			kind = exporter.SheetPressure
		}
		var buf bytes.Buffer
		if err := exporter.WriteSheet(&buf, report.Sheet(kind)); err != nil {
			infrastructure.RecordOperationError(ctx, s.metrics, "export", err)
			return nil, err
		}
		file = &ExportFile{Name: fmt.Sprintf("%s_%s.csv", base, kind), ContentType: ContentTypeCSV, Data: buf.Bytes()}
	default:
		data, err := exporter.WorkbookBytes(report)
		if err != nil {
			infrastructure.RecordOperationError(ctx, s.metrics, "export", err)
			return nil, err
		}
		file = &ExportFile{Name: base + "_gait.xlsx", ContentType: ContentTypeXLSX, Data: data}
	}

	s.metrics.Exports.Add(ctx, 1, metric.WithAttributes(attribute.String("format", plan.format)))
	s.logger.InfoContext(ctx, "export rendered",
		slog.String("recording_id", report.Recording.ID),
		slog.String("file", file.Name),
		slog.Int("bytes", len(file.Data)))
	return file, nil
}

// ExportToDir writes the export of the recording at index into the export
// directory and returns the written paths. A csv export without a sheet
// writes one file per sheet.
func (s *AnalysisService) ExportToDir(ctx context.Context, index int, q api.ExportQuery) ([]string, error) {
	plan, err := parseExportQuery(q)
	if err != nil {
		return nil, err
	}
	report, err := s.Report(ctx, index, q.AnalysisQuery)
	if err != nil {
		return nil, err
	}
	base := exportBase(report.Recording)

	var paths []string
	switch {
	case plan.format == "xlsx":
		path := filepath.Join(s.exportDir, base+"_gait.xlsx")
		if err = exporter.WriteWorkbookFile(path, report); err == nil {
			paths = []string{path}
		}
	case plan.sheet == "":
		paths, err = s.csv.WriteReport(base, report)
	default:
		var path string
		path, err = s.csv.WriteSheetFile(fmt.Sprintf("%s_%s.csv", base, plan.sheet), report.Sheet(plan.sheet))
		if err == nil {
			paths = []string{path}
		}
	}
	if err != nil {
		infrastructure.RecordOperationError(ctx, s.metrics, "export", err)
		return paths, fmt.Errorf("export %s: %w", report.Recording.ID, err)
	}
	s.metrics.Exports.Add(ctx, int64(len(paths)), metric.WithAttributes(attribute.String("format", plan.format)))
	return paths, nil
}

// exportBase names exports after the source file, falling back to the id
func exportBase(rec *domain.ProcessedRecording) string {
	base := strings.TrimSuffix(filepath.Base(rec.FileName), filepath.Ext(rec.FileName))
	if base == "" || base == "." {
		return rec.ID
	}
	return base
}

// publish announces a dataset change; the recording may be nil
func (s *AnalysisService) publish(ctx context.Context, change events.DatasetChange, rec *domain.ProcessedRecording) {
	if s.broadcaster == nil {
		return
	}
	data := events.DatasetChanged{
		Change:      change,
		ActiveIndex: s.store.ActiveIndex(),
		Count:       s.store.Len(),
	}
	if rec != nil {
		data.RecordingID = rec.ID
		data.Revision = rec.Revision
	}
	msg := events.NewMessage(events.MessageTypeDatasetChanged, data)
	msg.TraceID = infrastructure.GetTraceID(ctx)
	s.broadcaster.Broadcast(msg)
}
