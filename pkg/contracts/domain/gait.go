package domain

import (
	"errors"
	"fmt"
)

// GaitEventType distinguishes heel strike from foot lift
type GaitEventType string

const (
	GaitEventInitialContact GaitEventType = "InitialContact"
	GaitEventToeOff         GaitEventType = "ToeOff"
)

// GaitEvent is one detected threshold crossing
type GaitEvent struct {
	Time        float64       `json:"time"`
	Type        GaitEventType `json:"type"`
	Foot        Foot          `json:"foot"`
	SampleIndex int           `json:"sample_index"`
}

// ThresholdPreset names a built-in detection threshold set
type ThresholdPreset string

const (
	// PresetStandard is the canonical default {15, 10}
	PresetStandard ThresholdPreset = "standard"
	// PresetLegacy reproduces the older hard-coded {25, 20}
	PresetLegacy ThresholdPreset = "legacy"
)

// GaitEventThresholds are the kPa crossing levels used by the detector
type GaitEventThresholds struct {
	InitialContact float64 `json:"initial_contact" yaml:"initial_contact" validate:"gt=0"`
	ToeOff         float64 `json:"toe_off" yaml:"toe_off" validate:"gt=0"`
}

// ErrUnknownPreset reports a threshold preset name that is not built in
var ErrUnknownPreset = errors.New("unknown threshold preset")

var thresholdPresets = map[ThresholdPreset]GaitEventThresholds{
	PresetStandard: {InitialContact: 15, ToeOff: 10},
	PresetLegacy:   {InitialContact: 25, ToeOff: 20},
}

// DefaultThresholds returns the standard preset
func DefaultThresholds() GaitEventThresholds {
	return thresholdPresets[PresetStandard]
}

// ThresholdsForPreset resolves a preset name. An empty name selects the standard preset.
func ThresholdsForPreset(preset ThresholdPreset) (GaitEventThresholds, error) {
	if preset == "" {
		return DefaultThresholds(), nil
	}
	t, ok := thresholdPresets[preset]
	if !ok {
		return GaitEventThresholds{}, fmt.Errorf("%q: %w", preset, ErrUnknownPreset)
	}
	return t, nil
}

// WithOverrides replaces any positive override value
func (t GaitEventThresholds) WithOverrides(initialContact, toeOff float64) GaitEventThresholds {
	if initialContact > 0 {
		t.InitialContact = initialContact
	}
	if toeOff > 0 {
		t.ToeOff = toeOff
	}
	return t
}

// AsymmetryClass is the display band of an asymmetry percentage
type AsymmetryClass string

const (
	AsymmetryMinimal  AsymmetryClass = "Minimal"
	AsymmetryLow      AsymmetryClass = "Low"
	AsymmetryModerate AsymmetryClass = "Moderate"
	AsymmetryHigh     AsymmetryClass = "High"
)

// ClassifyAsymmetry maps a percentage onto the fixed display bands
func ClassifyAsymmetry(percent float64) AsymmetryClass {
	switch {
	case percent < 3:
		return AsymmetryMinimal
	case percent < 6:
		return AsymmetryLow
	case percent < 10:
		return AsymmetryModerate
	default:
		return AsymmetryHigh
	}
}

// SideStats summarises the per-foot samples of one parameter
type SideStats struct {
	Values []float64 `json:"values"`
	Avg    float64   `json:"avg"`
	Std    float64   `json:"std"`
}

// GaitParameter is one temporal parameter for both feet
type GaitParameter struct {
	Left             SideStats      `json:"left"`
	Right            SideStats      `json:"right"`
	AsymmetryPercent float64        `json:"asymmetry_percent"`
	AsymmetryClass   AsymmetryClass `json:"asymmetry_class"`
}

// Side returns the stats of foot f
func (p *GaitParameter) Side(f Foot) *SideStats {
	if f == FootRight {
		return &p.Right
	}
	return &p.Left
}

// GaitParameters is the derived temporal summary of a recording
type GaitParameters struct {
	StepTime   GaitParameter `json:"step_time"`
	StrideTime GaitParameter `json:"stride_time"`
	StanceTime GaitParameter `json:"stance_time"`
	// Cadence in steps per minute
	Cadence             float64 `json:"cadence"`
	InitialContactCount int     `json:"initial_contact_count"`
	ToeOffCount         int     `json:"toe_off_count"`
	Duration            float64 `json:"duration"`
}
