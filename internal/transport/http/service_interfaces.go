package http

import (
	"context"

	"plantarcli/internal/services"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/events"
)

// AnalysisServiceInterface defines the dataset, filter and analysis
// operations the handlers need
type AnalysisServiceInterface interface {
	LoadUploads(ctx context.Context, uploads []services.Upload, opts services.LoadOptions) ([]api.LoadResponse, error)
	AttachForce(ctx context.Context, index int, name string, data []byte) (api.RecordingSummary, error)
	Recordings() api.DatasetResponse
	Select(ctx context.Context, index int) (api.RecordingSummary, error)
	Remove(ctx context.Context, index int) (api.DatasetResponse, error)

	Trim(ctx context.Context, start, end float64) (api.RecordingSummary, error)
	NoiseFloor(ctx context.Context, floor float64) (api.RecordingSummary, error)
	Reset(ctx context.Context) (api.RecordingSummary, error)

	Sample(t float64) (api.SampleResponse, error)
	Events(ctx context.Context, q api.AnalysisQuery) (api.EventsResponse, error)
	Parameters(ctx context.Context, q api.AnalysisQuery) (api.ParametersResponse, error)
	Export(ctx context.Context, q api.ExportQuery) (*services.ExportFile, error)
}

// PlaybackServiceInterface defines the cursor controls
type PlaybackServiceInterface interface {
	Snapshot() events.PlaybackSnapshot
	Play(ctx context.Context) (events.PlaybackSnapshot, error)
	Pause(ctx context.Context) events.PlaybackSnapshot
	Stop(ctx context.Context) events.PlaybackSnapshot
	Seek(ctx context.Context, t float64, fromSlider bool) (events.PlaybackSnapshot, error)
	SetSpeed(ctx context.Context, speed float64) (events.PlaybackSnapshot, error)
	SetRange(ctx context.Context, start, end float64) (events.PlaybackSnapshot, error)
}

// HealthServiceInterface defines the health probes
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) api.HealthResponse
	LivenessCheck(ctx context.Context) api.LivenessResponse
	Version() contracts.VersionInfo
}
