package dataprocessing

import (
	"errors"
	"fmt"

	"plantarcli/internal/regions"
	"plantarcli/pkg/contracts/domain"
)

// Filter transforms a recording in place. Filters are always handed a private
// copy, never a published recording.
type Filter func(rec *domain.ProcessedRecording) error

var ErrInvalidFilter = errors.New("invalid filter parameters")

// TrimRange keeps only samples with start <= time <= end
func TrimRange(start, end float64) Filter {
	return func(rec *domain.ProcessedRecording) error {
		if end < start {
			return fmt.Errorf("trim %.3f..%.3f: %w", start, end, ErrInvalidFilter)
		}
		kept := rec.Samples[:0]
		for _, s := range rec.Samples {
			if s.Time >= start && s.Time <= end {
				kept = append(kept, s)
			}
		}
		rec.Samples = kept
		return nil
	}
}

// NoiseFloor drops region readings below floor kPa and re-aggregates peak and
// mean from the remaining readings
func NoiseFloor(floor float64) Filter {
	return func(rec *domain.ProcessedRecording) error {
		if floor < 0 {
			return fmt.Errorf("noise floor %.3f: %w", floor, ErrInvalidFilter)
		}
		for i := range rec.Samples {
			for _, foot := range domain.Feet {
				fp := rec.Samples[i].Foot(foot)
				for _, r := range domain.Regions {
					fp.SetRegion(r, regions.Summarize(aboveFloor(fp.Region(r).Raw, floor)))
				}
			}
		}
		return nil
	}
}

func aboveFloor(raw []float64, floor float64) []float64 {
	kept := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v >= floor {
			kept = append(kept, v)
		}
	}
	return kept
}

// Chain applies filters in order and stops at the first error
func Chain(filters ...Filter) Filter {
	return func(rec *domain.ProcessedRecording) error {
		for _, f := range filters {
			if err := f(rec); err != nil {
				return err
			}
		}
		return nil
	}
}
