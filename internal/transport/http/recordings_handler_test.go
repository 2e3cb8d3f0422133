package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"plantarcli/internal/dataprocessing"
	"plantarcli/internal/playback"
	"plantarcli/internal/services"
	"plantarcli/internal/shared/testutil"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/domain"
)

func newRecordingsRouter(t *testing.T, svc *MockAnalysisService, maxUpload int64) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h := NewRecordingsHandler(svc, maxUpload, logger, newTestErrorHandler(t))
	return mount("/api/recordings", h.Routes())
}

func TestRecordingsHandler_List(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Recordings").Return(api.DatasetResponse{
		ActiveIndex: 0,
		Recordings:  []api.RecordingSummary{{Index: 0, Active: true, ID: "walk", Samples: 61}},
	})

	rec := httptest.NewRecorder()
	newRecordingsRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body api.DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recordings, 1)
	assert.Equal(t, "walk", body.Recordings[0].ID)
	assert.Equal(t, 61, body.Recordings[0].Samples)
	svc.AssertExpectations(t)
}

func TestRecordingsHandler_Upload(t *testing.T) {
	tests := []struct {
		name           string
		files          []uploadFile
		values         map[string]string
		maxUpload      int64
		setupMock      func(*MockAnalysisService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "loads every file in order",
			files: []uploadFile{{"a.xlsx", []byte("one")}, {"b.xlsx", []byte("two")}},
			setupMock: func(m *MockAnalysisService) {
				uploads := []services.Upload{{Name: "a.xlsx", Data: []byte("one")}, {Name: "b.xlsx", Data: []byte("two")}}
				m.On("LoadUploads", uploads, services.LoadOptions{}).Return([]api.LoadResponse{
					{Recording: api.RecordingSummary{ID: "a"}},
					{Recording: api.RecordingSummary{ID: "b", Index: 1}, Duplicate: true},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"duplicate":true`,
		},
		{
			name:   "region overrides are parsed",
			files:  []uploadFile{{"a.xlsx", []byte("one")}},
			values: map[string]string{"overrides": "overrides:\n  3: heel\n"},
			setupMock: func(m *MockAnalysisService) {
				opts := services.LoadOptions{Overrides: map[int]domain.Region{3: domain.RegionHeel}}
				m.On("LoadUploads", []services.Upload{{Name: "a.xlsx", Data: []byte("one")}}, opts).
					Return([]api.LoadResponse{{Recording: api.RecordingSummary{ID: "a"}}}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown override region",
			files:          []uploadFile{{"a.xlsx", []byte("one")}},
			values:         map[string]string{"overrides": "overrides:\n  3: ankle\n"},
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "/errors/recording/region-overrides",
		},
		{
			name:           "bad name in a later part loads nothing",
			files:          []uploadFile{{"a.xlsx", []byte("one")}, {"b..xlsx", []byte("two")}},
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "filename",
		},
		{
			name:           "no file part",
			values:         map[string]string{"note": "x"},
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "file",
		},
		{
			name:           "upload over the limit",
			files:          []uploadFile{{"a.xlsx", []byte(strings.Repeat("x", 4096))}},
			maxUpload:      1024,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:  "missing time column",
			files: []uploadFile{{"a.csv", []byte("a,b")}},
			setupMock: func(m *MockAnalysisService) {
				m.On("LoadUploads", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("load a.csv: %w", dataprocessing.ErrMissingTimeColumn))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "Missing Time Column",
		},
		{
			name:  "unsupported format",
			files: []uploadFile{{"a.pdf", []byte("%PDF")}},
			setupMock: func(m *MockAnalysisService) {
				m.On("LoadUploads", mock.Anything, mock.Anything).
					Return(nil, dataprocessing.ErrUnsupportedFormat)
			},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			body, contentType := multipartBody(t, "file", tt.files, tt.values)
			req := httptest.NewRequest(http.MethodPost, "/api/recordings", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newRecordingsRouter(t, svc, tt.maxUpload).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRecordingsHandler_UploadRejectsNonMultipart(t *testing.T) {
	svc := new(MockAnalysisService)
	req := httptest.NewRequest(http.MethodPost, "/api/recordings", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRecordingsRouter(t, svc, 0).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
	svc.AssertNotCalled(t, "LoadUploads", mock.Anything, mock.Anything)
}

func TestRecordingsHandler_AttachForce(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantIndex int
	}{
		{name: "active recording", path: "/api/recordings/force", wantIndex: -1},
		{name: "explicit index", path: "/api/recordings/2/force", wantIndex: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			svc.On("AttachForce", tt.wantIndex, "force.csv", []byte("time,left,right")).
				Return(api.RecordingSummary{ID: "walk", HasForce: true}, nil)

			body, contentType := multipartBody(t, "file", []uploadFile{{"force.csv", []byte("time,left,right")}}, nil)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newRecordingsRouter(t, svc, 0).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"has_force":true`)
			svc.AssertExpectations(t)
		})
	}
}

func TestRecordingsHandler_SelectAndRemove(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "select by path",
			method: http.MethodPost,
			path:   "/api/recordings/1/select",
			setupMock: func(m *MockAnalysisService) {
				m.On("Select", 1).Return(api.RecordingSummary{Index: 1, Active: true, ID: "b"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"active":true`,
		},
		{
			name:   "select by body",
			method: http.MethodPut,
			path:   "/api/recordings/active",
			body:   `{"index":0}`,
			setupMock: func(m *MockAnalysisService) {
				m.On("Select", 0).Return(api.RecordingSummary{Index: 0, Active: true, ID: "a"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "select body with negative index",
			method:         http.MethodPut,
			path:           "/api/recordings/active",
			body:           `{"index":-1}`,
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "index",
		},
		{
			name:   "select unknown index",
			method: http.MethodPost,
			path:   "/api/recordings/9/select",
			setupMock: func(m *MockAnalysisService) {
				m.On("Select", 9).Return(api.RecordingSummary{}, playback.ErrDatasetNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "/errors/dataset/not-found",
		},
		{
			name:           "non-numeric index",
			method:         http.MethodDelete,
			path:           "/api/recordings/abc",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "remove",
			method: http.MethodDelete,
			path:   "/api/recordings/0",
			setupMock: func(m *MockAnalysisService) {
				m.On("Remove", 0).Return(api.DatasetResponse{ActiveIndex: -1, Recordings: []api.RecordingSummary{}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"active_index":-1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			newRecordingsRouter(t, svc, 0).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRecordingsHandler_Sample(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalysisService)
		expectedStatus int
	}{
		{
			name:  "sample at time",
			query: "?t=0.25",
			setupMock: func(m *MockAnalysisService) {
				m.On("Sample", 0.25).Return(api.SampleResponse{Time: 0.25}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing t",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "non-finite t",
			query:          "?t=NaN",
			setupMock:      func(m *MockAnalysisService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "nothing loaded",
			query: "?t=0",
			setupMock: func(m *MockAnalysisService) {
				m.On("Sample", 0.0).Return(api.SampleResponse{}, playback.ErrNoActiveDataset)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:  "unexpected failure",
			query: "?t=0",
			setupMock: func(m *MockAnalysisService) {
				m.On("Sample", 0.0).Return(api.SampleResponse{}, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newRecordingsRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/sample"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
