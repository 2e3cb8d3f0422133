package gait

import (
	"sort"

	"plantarcli/pkg/contracts/domain"
)

// Detect scans the time-ordered samples for threshold crossings. An Initial
// Contact is a rising edge of the heel peak through thresholds.InitialContact;
// a Toe Off is a falling edge of max(toes, hallux) peak through
// thresholds.ToeOff. Both feet are scanned independently and the merged
// result is stably sorted by time. Fewer than two samples yield no events.
func Detect(samples []domain.PressureSample, thresholds domain.GaitEventThresholds) []domain.GaitEvent {
	events := []domain.GaitEvent{}
	if len(samples) < 2 {
		return events
	}
	for _, foot := range domain.Feet {
		events = append(events, detectFoot(samples, foot, thresholds)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}

func detectFoot(samples []domain.PressureSample, foot domain.Foot, thresholds domain.GaitEventThresholds) []domain.GaitEvent {
	var events []domain.GaitEvent
	prev := samples[0].Foot(foot)
	for i := 1; i < len(samples); i++ {
		cur := samples[i].Foot(foot)

		if prev.Heel.Peak < thresholds.InitialContact && cur.Heel.Peak >= thresholds.InitialContact {
			events = append(events, domain.GaitEvent{
				Time:        samples[i].Time,
				Type:        domain.GaitEventInitialContact,
				Foot:        foot,
				SampleIndex: i,
			})
		}
		if prev.ToePeak() >= thresholds.ToeOff && cur.ToePeak() < thresholds.ToeOff {
			events = append(events, domain.GaitEvent{
				Time:        samples[i].Time,
				Type:        domain.GaitEventToeOff,
				Foot:        foot,
				SampleIndex: i,
			})
		}
		prev = cur
	}
	return events
}

// Filter returns the events of one type and foot, keeping their order
func Filter(events []domain.GaitEvent, typ domain.GaitEventType, foot domain.Foot) []domain.GaitEvent {
	var out []domain.GaitEvent
	for _, e := range events {
		if e.Type == typ && e.Foot == foot {
			out = append(out, e)
		}
	}
	return out
}
