package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "plantarcli/internal/errors"
	"plantarcli/internal/middleware"
	"plantarcli/internal/regions"
	"plantarcli/internal/services"
	api "plantarcli/pkg/contracts/api/v1"
)

type contextKey string

const indexKey contextKey = "recording_index"

// multipartMemory is the in-memory share of a multipart upload; the rest
// spills to temporary files
const multipartMemory = 8 << 20

// RecordingsHandler handles uploads and dataset management
type RecordingsHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	maxUpload    int64
}

// NewRecordingsHandler creates a recordings handler. maxUpload bounds the
// whole multipart body.
func NewRecordingsHandler(service AnalysisServiceInterface, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RecordingsHandler {
	return &RecordingsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "recordings")),
		errorHandler: errorHandler,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(errorHandler),
		maxUpload:    maxUpload,
	}
}

// Routes returns the recording routes
func (h *RecordingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	multipartOnly := middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")

	r.Get("/", h.List)
	r.With(multipartOnly).Post("/", h.Upload)
	r.Get("/sample", h.Sample)
	r.With(multipartOnly).Post("/force", h.AttachForce)
	r.Put("/active", h.SelectActive)

	r.Route("/{index}", func(r chi.Router) {
		r.Use(h.IndexCtx)
		r.Post("/select", h.Select)
		r.Delete("/", h.Remove)
		r.With(multipartOnly).Post("/force", h.AttachForce)
	})
	return r
}

// IndexCtx validates the index URL parameter
func (h *RecordingsHandler) IndexCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("index", "index must be a non-negative integer"))
			return
		}
		ctx := context.WithValue(r.Context(), indexKey, index)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeIndex returns the index set by IndexCtx, or -1 for the active recording
func routeIndex(r *http.Request) int {
	if index, ok := r.Context().Value(indexKey).(int); ok {
		return index
	}
	return -1
}

// List handles GET /api/recordings
func (h *RecordingsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Recordings())
}

// Upload handles POST /api/recordings. The "file" parts load in order and
// together: if one fails, none is added. An optional "overrides" field
// carries a region override document.
func (h *RecordingsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	files, form, ok := h.parseUpload(w, r, "file")
	if !ok {
		return
	}
	defer form.RemoveAll()

	var opts services.LoadOptions
	if doc := form.Value["overrides"]; len(doc) > 0 && doc[0] != "" {
		overrides, err := regions.ParseOverrides([]byte(doc[0]))
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		opts.Overrides = overrides
	}

	for _, fh := range files {
		if err := h.validation.ValidateStruct(uploadPart{Name: fh.Filename}); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		uploads = append(uploads, services.Upload{Name: fh.Filename, Data: data})
	}

	loaded, err := h.service.LoadUploads(r.Context(), uploads, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "recordings uploaded", slog.Int("files", len(loaded)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, loaded)
}

// AttachForce handles POST /api/recordings/force and
// POST /api/recordings/{index}/force
func (h *RecordingsHandler) AttachForce(w http.ResponseWriter, r *http.Request) {
	files, form, ok := h.parseUpload(w, r, "file")
	if !ok {
		return
	}
	defer form.RemoveAll()

	data, err := readPart(files[0])
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.service.AttachForce(r.Context(), routeIndex(r), files[0].Filename, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// parseUpload bounds and parses a multipart body and returns the parts
// under field
func (h *RecordingsHandler) parseUpload(w http.ResponseWriter, r *http.Request, field string) ([]*multipart.FileHeader, *multipart.Form, bool) {
	if h.maxUpload > 0 {
		if r.ContentLength > h.maxUpload {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return nil, nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return nil, nil, false
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(field, "request must be multipart/form-data"))
		return nil, nil, false
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		r.MultipartForm.RemoveAll()
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(field, fmt.Sprintf("at least one %q part is required", field)))
		return nil, nil, false
	}
	return files, r.MultipartForm, true
}

// uploadPart validates the client-supplied name of a file part
type uploadPart struct {
	Name string `json:"filename" validate:"filename"`
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("cannot open upload %s", fh.Filename), err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("cannot read upload %s", fh.Filename), err)
	}
	return data, nil
}

// Select handles POST /api/recordings/{index}/select
func (h *RecordingsHandler) Select(w http.ResponseWriter, r *http.Request) {
	h.selectIndex(w, r, routeIndex(r))
}

// SelectActive handles PUT /api/recordings/active
func (h *RecordingsHandler) SelectActive(w http.ResponseWriter, r *http.Request) {
	var req api.SelectRecordingRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.selectIndex(w, r, req.Index)
}

func (h *RecordingsHandler) selectIndex(w http.ResponseWriter, r *http.Request, index int) {
	summary, err := h.service.Select(r.Context(), index)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Remove handles DELETE /api/recordings/{index}
func (h *RecordingsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	dataset, err := h.service.Remove(r.Context(), routeIndex(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, dataset)
}

// Sample handles GET /api/recordings/sample?t=
func (h *RecordingsHandler) Sample(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("t") == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("t", "t is required"))
		return
	}
	t, ok := h.query.ValidateFloat(w, r, "t", 0)
	if !ok {
		return
	}
	resp, err := h.service.Sample(t)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}
