package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"plantarcli/internal/regions"
	"plantarcli/pkg/contracts/domain"
)

// Processor turns parsed export tables into ProcessedRecordings
type Processor struct {
	aggregator *regions.Aggregator
	logger     *slog.Logger
}

// NewProcessor creates a processor bound to a resolved region layout
func NewProcessor(aggregator *regions.Aggregator, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		aggregator: aggregator,
		logger:     logger.With(slog.String("component", "processor")),
	}
}

// Process aggregates every sample row of table. Rows without a numeric time
// value are skipped and counted. The result is ordered by time.
func (p *Processor) Process(ctx context.Context, table *Table, fileName string) (*domain.ProcessedRecording, error) {
	if table.TimeColumn < 0 || len(table.Header) == 0 {
		return nil, ErrMissingTimeColumn
	}

	rec := &domain.ProcessedRecording{
		ID:            uuid.New().String(),
		FileName:      fileName,
		ParticipantID: table.ParticipantID(),
		Metadata:      table.Metadata,
		Samples:       make([]domain.PressureSample, 0, len(table.Rows)),
	}

	sorted := true
	for _, row := range table.Rows {
		t, ok := parseTime(row, table.TimeColumn)
		if !ok {
			if !isBlank(row) {
				rec.SkippedRows++
			}
			continue
		}
		left, right := p.aggregator.AggregateCells(row)
		if n := len(rec.Samples); n > 0 && t < rec.Samples[n-1].Time {
			sorted = false
		}
		rec.Samples = append(rec.Samples, domain.PressureSample{Time: t, Left: left, Right: right})
	}

	if !sorted {
		p.logger.WarnContext(ctx, "sample rows out of time order, sorting",
			slog.String("file", fileName))
		sort.SliceStable(rec.Samples, func(i, j int) bool {
			return rec.Samples[i].Time < rec.Samples[j].Time
		})
	}

	rec.ScaleBounds = ComputeScaleBounds(rec.Samples)

	p.logger.InfoContext(ctx, "recording processed",
		slog.String("file", fileName),
		slog.String("recording_id", rec.ID),
		slog.Int("samples", len(rec.Samples)),
		slog.Int("skipped_rows", rec.SkippedRows),
		slog.Float64("max_peak_kpa", rec.MaxPeakPressure),
		slog.Float64("raw_max_peak_kpa", rec.RawMaxPeakPressure))

	return rec, nil
}

func parseTime(row []string, col int) (float64, bool) {
	if col >= len(row) {
		return 0, false
	}
	cell := strings.TrimSpace(row[col])
	if cell == "" {
		return 0, false
	}
	t, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	return t, true
}

// isBlank reports trailing empty rows that spreadsheet exports often carry
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
