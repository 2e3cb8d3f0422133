package api

import (
	"plantarcli/pkg/contracts/domain"
)

// RecordingSummary describes a loaded recording without its samples
type RecordingSummary struct {
	Index         int               `json:"index"`
	Active        bool              `json:"active"`
	ID            string            `json:"id"`
	Revision      int               `json:"revision"`
	FileName      string            `json:"file_name,omitempty"`
	ParticipantID string            `json:"participant_id,omitempty"`
	Checksum      string            `json:"checksum,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Samples       int               `json:"samples"`
	SkippedRows   int               `json:"skipped_rows"`
	Start         float64           `json:"start"`
	End           float64           `json:"end"`
	Duration      float64           `json:"duration"`
	HasForce      bool              `json:"has_force"`
	domain.ScaleBounds
}

// Summarize builds the summary of rec at index
func Summarize(rec *domain.ProcessedRecording, index int, active bool) RecordingSummary {
	hasForce := false
	for i := range rec.Samples {
		if rec.Samples[i].Force != nil {
			hasForce = true
			break
		}
	}
	return RecordingSummary{
		Index:         index,
		Active:        active,
		ID:            rec.ID,
		Revision:      rec.Revision,
		FileName:      rec.FileName,
		ParticipantID: rec.ParticipantID,
		Checksum:      rec.Checksum,
		Metadata:      rec.Metadata,
		Samples:       rec.Len(),
		SkippedRows:   rec.SkippedRows,
		Start:         rec.StartTime(),
		End:           rec.EndTime(),
		Duration:      rec.Duration(),
		HasForce:      hasForce,
		ScaleBounds:   rec.ScaleBounds,
	}
}

// DatasetResponse lists every loaded recording
type DatasetResponse struct {
	ActiveIndex int                `json:"active_index"`
	Recordings  []RecordingSummary `json:"recordings"`
}

// LoadResponse is returned after an upload. Duplicate is set when the same
// bytes were already loaded; the existing recording is re-activated.
type LoadResponse struct {
	Recording RecordingSummary `json:"recording"`
	Duplicate bool             `json:"duplicate"`
}

// SampleResponse is the sample at or before Time. EmptyRegions flags
// regions reported as zero because no sensor had a valid reading.
type SampleResponse struct {
	Time         float64                         `json:"time"`
	Sample       *domain.PressureSample          `json:"sample"`
	EmptyRegions map[domain.Foot][]domain.Region `json:"empty_regions,omitempty"`
}

// NewSampleResponse builds the response for a lookup at t
func NewSampleResponse(t float64, sample *domain.PressureSample) SampleResponse {
	resp := SampleResponse{Time: t, Sample: sample}
	if sample == nil {
		return resp
	}
	for _, f := range domain.Feet {
		if empty := sample.Foot(f).EmptyRegions(); len(empty) > 0 {
			if resp.EmptyRegions == nil {
				resp.EmptyRegions = make(map[domain.Foot][]domain.Region, 2)
			}
			resp.EmptyRegions[f] = empty
		}
	}
	return resp
}

// EventsResponse lists the detected gait events
type EventsResponse struct {
	RecordingID string                     `json:"recording_id"`
	Revision    int                        `json:"revision"`
	Thresholds  domain.GaitEventThresholds `json:"thresholds"`
	Count       int                        `json:"count"`
	Events      []domain.GaitEvent         `json:"events"`
}

// ParametersResponse carries the temporal gait parameters
type ParametersResponse struct {
	RecordingID string                     `json:"recording_id"`
	Revision    int                        `json:"revision"`
	Thresholds  domain.GaitEventThresholds `json:"thresholds"`
	Parameters  domain.GaitParameters      `json:"parameters"`
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components"`
	Recordings int               `json:"recordings"`
	Clients    int               `json:"websocket_clients"`
}

// LivenessResponse is the body of the liveness endpoint
type LivenessResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
}
