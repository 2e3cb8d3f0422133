package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "plantarcli/internal/errors"
	"plantarcli/internal/middleware"
	api "plantarcli/pkg/contracts/api/v1"
)

// AnalysisHandler serves gait events, parameters, filters and exports for
// the active recording
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "analysis")),
		errorHandler: errorHandler,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(errorHandler),
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/events", h.Events)
		r.Get("/parameters", h.Parameters)

		r.Route("/filters", func(r chi.Router) {
			r.Use(h.validation.ValidateRequest)
			r.Post("/trim", h.Trim)
			r.Post("/noise-floor", h.NoiseFloor)
			r.Post("/reset", h.Reset)
		})
	})

	// binary response; errors still render as problem+json
	r.Get("/export", h.Export)
	return r
}

// parseAnalysisQuery reads preset, initial_contact and toe_off
func (h *AnalysisHandler) parseAnalysisQuery(w http.ResponseWriter, r *http.Request) (api.AnalysisQuery, bool) {
	q := api.AnalysisQuery{Preset: r.URL.Query().Get("preset")}
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"initial_contact", &q.InitialContact},
		{"toe_off", &q.ToeOff},
	} {
		if r.URL.Query().Get(p.name) == "" {
			continue
		}
		v, ok := h.query.ValidateFloat(w, r, p.name, 0)
		if !ok {
			return q, false
		}
		*p.dst = &v
	}
	if err := h.validation.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	return q, true
}

// Events handles GET /api/analysis/events
func (h *AnalysisHandler) Events(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseAnalysisQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Events(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Parameters handles GET /api/analysis/parameters
func (h *AnalysisHandler) Parameters(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseAnalysisQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Parameters(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Trim handles POST /api/analysis/filters/trim
func (h *AnalysisHandler) Trim(w http.ResponseWriter, r *http.Request) {
	var req api.TrimRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.service.Trim(r.Context(), req.Start, req.End)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// NoiseFloor handles POST /api/analysis/filters/noise-floor
func (h *AnalysisHandler) NoiseFloor(w http.ResponseWriter, r *http.Request) {
	var req api.NoiseFloorRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.service.NoiseFloor(r.Context(), req.Floor)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Reset handles POST /api/analysis/filters/reset
func (h *AnalysisHandler) Reset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Reset(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Export handles GET /api/analysis/export?format=xlsx|csv&sheet=
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", []string{"xlsx", "csv"}, "xlsx")
	if !ok {
		return
	}
	sheet, ok := h.query.ValidateEnum(w, r, "sheet", []string{"pressure", "events", "summary"}, "")
	if !ok {
		return
	}
	aq, ok := h.parseAnalysisQuery(w, r)
	if !ok {
		return
	}

	file, err := h.service.Export(r.Context(), api.ExportQuery{Format: format, Sheet: sheet, AnalysisQuery: aq})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("file", file.Name),
			slog.String("error", err.Error()))
	}
}
