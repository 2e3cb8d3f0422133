// Package api contains the HTTP API contracts of the plantar analysis server.
// Version v1 represents the current stable API version.
package api

// SelectRecordingRequest makes the recording at Index active
type SelectRecordingRequest struct {
	Index int `json:"index" validate:"gte=0"`
}

// TrimRequest keeps only samples with Start <= time <= End
type TrimRequest struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// NoiseFloorRequest drops readings below Floor kPa and re-aggregates
type NoiseFloorRequest struct {
	Floor float64 `json:"floor" validate:"gte=0"`
}

// SeekRequest moves the playback cursor. FromSlider pauses a playing
// cursor first, matching a user dragging the timeline.
type SeekRequest struct {
	Time       float64 `json:"time"`
	FromSlider bool    `json:"from_slider"`
}

// SpeedRequest sets the playback multiplier
type SpeedRequest struct {
	Speed float64 `json:"speed" validate:"gt=0,lte=16"`
}

// RangeRequest restricts playback to [Start, End]
type RangeRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// AnalysisQuery selects the detection thresholds for events and parameters.
// Explicit values override the preset.
type AnalysisQuery struct {
	Preset         string   `json:"preset,omitempty" validate:"omitempty,preset"`
	InitialContact *float64 `json:"initial_contact,omitempty" validate:"omitempty,gt=0"`
	ToeOff         *float64 `json:"toe_off,omitempty" validate:"omitempty,gt=0"`
}

// ExportQuery picks the export format and, for csv, the sheet
type ExportQuery struct {
	Format string `json:"format" validate:"oneof=xlsx csv"`
	Sheet  string `json:"sheet,omitempty" validate:"omitempty,oneof=pressure events summary"`
	AnalysisQuery
}
