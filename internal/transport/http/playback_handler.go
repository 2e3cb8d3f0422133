package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "plantarcli/internal/errors"
	"plantarcli/internal/middleware"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/events"
)

// PlaybackHandler drives the shared playback cursor. Every command answers
// with the resulting snapshot; connected websocket clients get the same
// snapshot pushed.
type PlaybackHandler struct {
	service      PlaybackServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validation   *middleware.ValidationMiddleware
}

// NewPlaybackHandler creates a playback handler
func NewPlaybackHandler(service PlaybackServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PlaybackHandler {
	return &PlaybackHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "playback")),
		errorHandler: errorHandler,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
	}
}

// Routes returns the playback routes
func (h *PlaybackHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validation.ValidateRequest)

	r.Get("/", h.Snapshot)
	r.Post("/play", h.Play)
	r.Post("/pause", h.Pause)
	r.Post("/stop", h.Stop)
	r.Post("/seek", h.Seek)
	r.Post("/speed", h.Speed)
	r.Post("/range", h.Range)
	return r
}

// Snapshot handles GET /api/playback
func (h *PlaybackHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Snapshot())
}

// Play handles POST /api/playback/play
func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Play(r.Context()))
}

// Pause handles POST /api/playback/pause
func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Pause(r.Context()))
}

// Stop handles POST /api/playback/stop
func (h *PlaybackHandler) Stop(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Stop(r.Context()))
}

// Seek handles POST /api/playback/seek
func (h *PlaybackHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req api.SeekRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r)(h.service.Seek(r.Context(), req.Time, req.FromSlider))
}

// Speed handles POST /api/playback/speed
func (h *PlaybackHandler) Speed(w http.ResponseWriter, r *http.Request) {
	var req api.SpeedRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r)(h.service.SetSpeed(r.Context(), req.Speed))
}

// Range handles POST /api/playback/range
func (h *PlaybackHandler) Range(w http.ResponseWriter, r *http.Request) {
	var req api.RangeRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r)(h.service.SetRange(r.Context(), req.Start, req.End))
}

// respond renders a snapshot or the error that prevented it
func (h *PlaybackHandler) respond(w http.ResponseWriter, r *http.Request) func(events.PlaybackSnapshot, error) {
	return func(snap events.PlaybackSnapshot, err error) {
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, snap)
	}
}
