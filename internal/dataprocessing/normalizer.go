package dataprocessing

import (
	"slices"

	"plantarcli/pkg/contracts/domain"
)

// OutlierFactor bounds the display maximum relative to the top-decile mean
const OutlierFactor = 3.0

// CappedMaximum caps the global maximum of per-sample maxima at OutlierFactor
// times the mean of the top decile (at least one value). It returns the capped
// and the raw maximum; an empty input yields zeros.
func CappedMaximum(maxima []float64) (capped, raw float64) {
	if len(maxima) == 0 {
		return 0, 0
	}
	sorted := slices.Clone(maxima)
	slices.SortFunc(sorted, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})

	raw = sorted[0]
	// ceil(10%) without float rounding
	top := max((len(sorted)+9)/10, 1)
	sum := 0.0
	for _, v := range sorted[:top] {
		sum += v
	}
	avgTop10 := sum / float64(top)
	return min(raw, avgTop10*OutlierFactor), raw
}

// ComputeScaleBounds derives the display maxima of a sample series. The peak
// maximum is outlier-capped; the mean maximum is not.
func ComputeScaleBounds(samples []domain.PressureSample) domain.ScaleBounds {
	if len(samples) == 0 {
		return domain.ScaleBounds{}
	}
	maxima := make([]float64, len(samples))
	maxMean := 0.0
	for i := range samples {
		maxima[i] = samples[i].MaxPeak()
		maxMean = max(maxMean, samples[i].MaxMean())
	}
	capped, raw := CappedMaximum(maxima)
	return domain.ScaleBounds{
		MaxPeakPressure:    capped,
		RawMaxPeakPressure: raw,
		MaxMeanPressure:    maxMean,
	}
}
