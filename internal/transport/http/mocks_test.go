package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "plantarcli/internal/errors"
	"plantarcli/internal/services"
	"plantarcli/internal/shared/testutil"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/events"
)

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) LoadUploads(ctx context.Context, uploads []services.Upload, opts services.LoadOptions) ([]api.LoadResponse, error) {
	args := m.Called(uploads, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.LoadResponse), args.Error(1)
}

func (m *MockAnalysisService) AttachForce(ctx context.Context, index int, name string, data []byte) (api.RecordingSummary, error) {
	args := m.Called(index, name, data)
	return args.Get(0).(api.RecordingSummary), args.Error(1)
}

func (m *MockAnalysisService) Recordings() api.DatasetResponse {
	return m.Called().Get(0).(api.DatasetResponse)
}

func (m *MockAnalysisService) Select(ctx context.Context, index int) (api.RecordingSummary, error) {
	args := m.Called(index)
	return args.Get(0).(api.RecordingSummary), args.Error(1)
}

func (m *MockAnalysisService) Remove(ctx context.Context, index int) (api.DatasetResponse, error) {
	args := m.Called(index)
	return args.Get(0).(api.DatasetResponse), args.Error(1)
}

func (m *MockAnalysisService) Trim(ctx context.Context, start, end float64) (api.RecordingSummary, error) {
	args := m.Called(start, end)
	return args.Get(0).(api.RecordingSummary), args.Error(1)
}

func (m *MockAnalysisService) NoiseFloor(ctx context.Context, floor float64) (api.RecordingSummary, error) {
	args := m.Called(floor)
	return args.Get(0).(api.RecordingSummary), args.Error(1)
}

func (m *MockAnalysisService) Reset(ctx context.Context) (api.RecordingSummary, error) {
	args := m.Called()
	return args.Get(0).(api.RecordingSummary), args.Error(1)
}

func (m *MockAnalysisService) Sample(t float64) (api.SampleResponse, error) {
	args := m.Called(t)
	return args.Get(0).(api.SampleResponse), args.Error(1)
}

func (m *MockAnalysisService) Events(ctx context.Context, q api.AnalysisQuery) (api.EventsResponse, error) {
	args := m.Called(q)
	return args.Get(0).(api.EventsResponse), args.Error(1)
}

func (m *MockAnalysisService) Parameters(ctx context.Context, q api.AnalysisQuery) (api.ParametersResponse, error) {
	args := m.Called(q)
	return args.Get(0).(api.ParametersResponse), args.Error(1)
}

func (m *MockAnalysisService) Export(ctx context.Context, q api.ExportQuery) (*services.ExportFile, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportFile), args.Error(1)
}

// MockPlaybackService is a mock implementation of PlaybackServiceInterface
type MockPlaybackService struct {
	mock.Mock
}

func (m *MockPlaybackService) Snapshot() events.PlaybackSnapshot {
	return m.Called().Get(0).(events.PlaybackSnapshot)
}

func (m *MockPlaybackService) Play(ctx context.Context) (events.PlaybackSnapshot, error) {
	args := m.Called()
	return args.Get(0).(events.PlaybackSnapshot), args.Error(1)
}

func (m *MockPlaybackService) Pause(ctx context.Context) events.PlaybackSnapshot {
	return m.Called().Get(0).(events.PlaybackSnapshot)
}

func (m *MockPlaybackService) Stop(ctx context.Context) events.PlaybackSnapshot {
	return m.Called().Get(0).(events.PlaybackSnapshot)
}

func (m *MockPlaybackService) Seek(ctx context.Context, t float64, fromSlider bool) (events.PlaybackSnapshot, error) {
	args := m.Called(t, fromSlider)
	return args.Get(0).(events.PlaybackSnapshot), args.Error(1)
}

func (m *MockPlaybackService) SetSpeed(ctx context.Context, speed float64) (events.PlaybackSnapshot, error) {
	args := m.Called(speed)
	return args.Get(0).(events.PlaybackSnapshot), args.Error(1)
}

func (m *MockPlaybackService) SetRange(ctx context.Context, start, end float64) (events.PlaybackSnapshot, error) {
	args := m.Called(start, end)
	return args.Get(0).(events.PlaybackSnapshot), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	return m.Called().Get(0).(api.HealthResponse)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) api.LivenessResponse {
	return m.Called().Get(0).(api.LivenessResponse)
}

func (m *MockHealthService) Version() contracts.VersionInfo {
	return m.Called().Get(0).(contracts.VersionInfo)
}

func newTestErrorHandler(t *testing.T) *apierrors.ErrorHandler {
	logger, _ := testutil.NewTestLogger(t)
	return apierrors.NewErrorHandler(logger, false)
}

// mount serves routes under prefix the way the application router does
func mount(prefix string, routes chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Mount(prefix, routes)
	return r
}

type uploadFile struct {
	name string
	data []byte
}

// multipartBody encodes files under field plus plain form values
func multipartBody(t *testing.T, field string, files []uploadFile, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
