package gait

import (
	"sort"

	"plantarcli/pkg/contracts/domain"
)

// Calculate derives step, stride and stance time, cadence and asymmetry from
// an event stream. duration is last sample time minus first sample time.
// Events are sorted by time first, so callers may pass them in any order.
func Calculate(events []domain.GaitEvent, duration float64) domain.GaitParameters {
	sorted := make([]domain.GaitEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var contacts []domain.GaitEvent
	toeOffs := map[domain.Foot][]float64{}
	for _, e := range sorted {
		switch e.Type {
		case domain.GaitEventInitialContact:
			contacts = append(contacts, e)
		case domain.GaitEventToeOff:
			toeOffs[e.Foot] = append(toeOffs[e.Foot], e.Time)
		}
	}

	step := map[domain.Foot][]float64{}
	stride := map[domain.Foot][]float64{}
	stance := map[domain.Foot][]float64{}
	lastContact := map[domain.Foot]float64{}
	seen := map[domain.Foot]bool{}

	for i, ic := range contacts {
		if i > 0 && contacts[i-1].Foot != ic.Foot {
			step[ic.Foot] = append(step[ic.Foot], ic.Time-contacts[i-1].Time)
		}
		if seen[ic.Foot] {
			stride[ic.Foot] = append(stride[ic.Foot], ic.Time-lastContact[ic.Foot])
		}
		lastContact[ic.Foot], seen[ic.Foot] = ic.Time, true

		if to, ok := nextAfter(toeOffs[ic.Foot], ic.Time); ok {
			stance[ic.Foot] = append(stance[ic.Foot], to-ic.Time)
		}
	}

	cadence := 0.0
	if duration > 0 {
		cadence = float64(len(contacts)) / duration * 60
	}

	return domain.GaitParameters{
		StepTime:            buildParameter(step),
		StrideTime:          buildParameter(stride),
		StanceTime:          buildParameter(stance),
		Cadence:             cadence,
		InitialContactCount: len(contacts),
		ToeOffCount:         len(toeOffs[domain.FootLeft]) + len(toeOffs[domain.FootRight]),
		Duration:            duration,
	}
}

// nextAfter returns the first time strictly greater than t in a sorted slice
func nextAfter(times []float64, t float64) (float64, bool) {
	i := sort.Search(len(times), func(i int) bool { return times[i] > t })
	if i == len(times) {
		return 0, false
	}
	return times[i], true
}

func buildParameter(values map[domain.Foot][]float64) domain.GaitParameter {
	var p domain.GaitParameter
	for _, foot := range domain.Feet {
		v := values[foot]
		if v == nil {
			v = []float64{}
		}
		*p.Side(foot) = domain.SideStats{Values: v, Avg: Mean(v), Std: PopulationStd(v)}
	}
	p.AsymmetryPercent = AsymmetryPercent(p.Left.Avg, p.Right.Avg)
	p.AsymmetryClass = domain.ClassifyAsymmetry(p.AsymmetryPercent)
	return p
}

// Analyze runs detection and parameter derivation over a whole recording
func Analyze(rec *domain.ProcessedRecording, thresholds domain.GaitEventThresholds) ([]domain.GaitEvent, domain.GaitParameters) {
	if rec == nil {
		return []domain.GaitEvent{}, Calculate(nil, 0)
	}
	events := Detect(rec.Samples, thresholds)
	return events, Calculate(events, rec.Duration())
}
