package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sunpump/internal/dashboard"
	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// DashboardHandler renders the HTML dashboard at "/".
type DashboardHandler struct {
	service  ForecastService
	renderer *dashboard.Renderer
	logger   *slog.Logger
}

func NewDashboardHandler(svc ForecastService, renderer *dashboard.Renderer, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{service: svc, renderer: renderer, logger: logger}
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleDashboard)
}

// HandleDashboard handles GET /. The page never fails on a bad ?lang=;
// it falls back to Accept-Language instead.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	lang, err := requestLanguage(r)
	if err != nil {
		lang = i18n.Negotiate(r.Header.Get("Accept-Language"))
	}

	v, err := h.service.Current(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	var buf bytes.Buffer
	err = h.renderer.Render(&buf, dashboard.Input{
		Language:  lang,
		Records:   v.Records,
		Summary:   v.Summary,
		Advisory:  v.Advisory(lang),
		Source:    v.Source,
		LoadedAt:  v.LoadedAt,
		ExportURL: "/v1/forecast/export",
	})
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", lang.Code())
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// pageError writes a plain-text error; the page has no JSON consumer.
func (h *DashboardHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "the forecast could not be displayed"
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		msg = appErr.Message
	}
	h.logger.Error("dashboard render failed", "error", err, "request_id", types.GetRequestID(r.Context()))
	http.Error(w, msg, status)
}
