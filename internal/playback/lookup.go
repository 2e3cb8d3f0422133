package playback

import (
	"sort"

	"plantarcli/pkg/contracts/domain"
)

// LookupIndex returns the index of the sample with the greatest time <= t,
// 0 when t precedes every sample and -1 for an empty series. O(log n).
func LookupIndex(samples []domain.PressureSample, t float64) int {
	if len(samples) == 0 {
		return -1
	}
	// first sample strictly after t
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Time > t })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Lookup returns the sample selected by LookupIndex, nil for an empty series
func Lookup(samples []domain.PressureSample, t float64) *domain.PressureSample {
	i := LookupIndex(samples, t)
	if i < 0 {
		return nil
	}
	return &samples[i]
}
