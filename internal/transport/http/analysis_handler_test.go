package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plantarcli/internal/dataprocessing"
	"plantarcli/internal/playback"
	"plantarcli/internal/services"
	"plantarcli/internal/shared/testutil"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/domain"
)

func newAnalysisRouter(t *testing.T, svc *MockAnalysisService) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h := NewAnalysisHandler(svc, logger, newTestErrorHandler(t))
	return mount("/api/analysis", h.Routes())
}

func ptr(v float64) *float64 { return &v }

func TestAnalysisHandler_Events(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "default thresholds",
			setupMock: func(m *MockAnalysisService) {
				m.On("Events", api.AnalysisQuery{}).Return(api.EventsResponse{
					RecordingID: "walk",
					Count:       1,
					Events:      []domain.GaitEvent{{Time: 0.01, Foot: domain.FootLeft, Type: domain.GaitEventInitialContact}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":1`,
		},
		{
			name:  "preset and override",
			query: "?preset=legacy&toe_off=12.5",
			setupMock: func(m *MockAnalysisService) {
				m.On("Events", api.AnalysisQuery{Preset: "legacy", ToeOff: ptr(12.5)}).
					Return(api.EventsResponse{RecordingID: "walk"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown preset",
			query:          "?preset=fast",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "preset",
		},
		{
			name:           "non-positive threshold",
			query:          "?initial_contact=0",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "initial_contact",
		},
		{
			name:           "non-numeric threshold",
			query:          "?toe_off=abc",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "no data loaded",
			setupMock: func(m *MockAnalysisService) {
				m.On("Events", api.AnalysisQuery{}).Return(api.EventsResponse{}, playback.ErrNoActiveDataset)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "No Data Loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newAnalysisRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/events"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_Parameters(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Parameters", api.AnalysisQuery{InitialContact: ptr(20)}).Return(api.ParametersResponse{
		RecordingID: "walk",
		Parameters:  domain.GaitParameters{Cadence: 120, InitialContactCount: 3},
	}, nil)

	rec := httptest.NewRecorder()
	newAnalysisRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/parameters?initial_contact=20", nil))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"cadence":120`)
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_Filters(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
	}{
		{
			name: "trim",
			path: "/trim",
			body: `{"start":0.1,"end":0.3}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("Trim", 0.1, 0.3).Return(api.RecordingSummary{Samples: 21, Revision: 1}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "trim with end before start",
			path:           "/trim",
			body:           `{"start":0.3,"end":0.1}`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "trim with unknown field",
			path:           "/trim",
			body:           `{"start":0.1,"end":0.3,"foot":"left"}`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			path:           "/trim",
			body:           `{"start":`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "trim leaving nothing",
			path: "/trim",
			body: `{"start":5,"end":6}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("Trim", 5.0, 6.0).Return(api.RecordingSummary{}, fmt.Errorf("trim: %w", dataprocessing.ErrInvalidFilter))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "noise floor",
			path: "/noise-floor",
			body: `{"floor":50}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("NoiseFloor", 50.0).Return(api.RecordingSummary{Revision: 2}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "negative noise floor",
			path:           "/noise-floor",
			body:           `{"floor":-1}`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "reset",
			path: "/reset",
			setupMock: func(m *MockAnalysisService) {
				m.On("Reset").Return(api.RecordingSummary{Samples: 61}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "reset without data",
			path: "/reset",
			setupMock: func(m *MockAnalysisService) {
				m.On("Reset").Return(api.RecordingSummary{}, playback.ErrNoActiveDataset)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/analysis/filters"+tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			newAnalysisRouter(t, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_Export(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		setupMock       func(*MockAnalysisService)
		expectedStatus  int
		expectedType    string
		expectedAttach  string
		expectedPayload string
	}{
		{
			name: "workbook by default",
			setupMock: func(m *MockAnalysisService) {
				m.On("Export", api.ExportQuery{Format: "xlsx"}).Return(&services.ExportFile{
					Name: "walk_gait.xlsx", ContentType: services.ContentTypeXLSX, Data: []byte("PK"),
				}, nil)
			},
			expectedStatus:  http.StatusOK,
			expectedType:    services.ContentTypeXLSX,
			expectedAttach:  `attachment; filename="walk_gait.xlsx"`,
			expectedPayload: "PK",
		},
		{
			name:  "csv sheet with thresholds",
			query: "?format=csv&sheet=events&preset=legacy",
			setupMock: func(m *MockAnalysisService) {
				q := api.ExportQuery{Format: "csv", Sheet: "events", AnalysisQuery: api.AnalysisQuery{Preset: "legacy"}}
				m.On("Export", q).Return(&services.ExportFile{
					Name: "walk_events.csv", ContentType: services.ContentTypeCSV, Data: []byte("Time,Foot,Event\n"),
				}, nil)
			},
			expectedStatus:  http.StatusOK,
			expectedType:    services.ContentTypeCSV,
			expectedAttach:  `attachment; filename="walk_events.csv"`,
			expectedPayload: "Time,Foot,Event\n",
		},
		{
			name:           "unknown format",
			query:          "?format=pdf",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown sheet",
			query:          "?format=csv&sheet=forces",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "nothing loaded",
			setupMock: func(m *MockAnalysisService) {
				m.On("Export", mock.Anything).Return(nil, playback.ErrNoActiveDataset)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newAnalysisRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/export"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedType, rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.expectedAttach, rec.Header().Get("Content-Disposition"))
				assert.Equal(t, tt.expectedPayload, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
