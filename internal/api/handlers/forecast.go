// Package handlers contains the HTTP handlers for the forecast API, the
// label catalogue and the dashboard page.
package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sunpump/internal/core"
	"sunpump/internal/forecasts"
	"sunpump/internal/types"
)

// ExportFilename is the download name of the CSV export.
const ExportFilename = "forecast_72h.csv"

// ForecastService is the contract the forecast handlers need.
// *forecasts.Service satisfies it.
type ForecastService interface {
	Current(ctx context.Context) (*forecasts.View, error)
	Reload(ctx context.Context) (*forecasts.View, error)
}

// ForecastHandler serves the forecast, alert and advisory endpoints.
type ForecastHandler struct {
	service ForecastService
	logger  *slog.Logger
}

func NewForecastHandler(svc ForecastService, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the public read endpoints under /v1.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/forecast", h.HandleGetForecast)
	r.Get("/forecast/export", h.HandleExport)
	r.Get("/alerts", h.HandleListAlerts)
	r.Get("/alerts/now", h.HandleAlertNow)
	r.Get("/advisory", h.HandleGetAdvisory)
}

// RegisterAdminRoutes mounts operator endpoints behind guard.
func (h *ForecastHandler) RegisterAdminRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.With(guard).Post("/forecast/reload", h.HandleReload)
}

type forecastResponse struct {
	Source   string                `json:"source"`
	LoadedAt time.Time             `json:"loaded_at"`
	Points   []types.ForecastPoint `json:"points"`
	Summary  types.ForecastSummary `json:"summary"`
}

type alertsResponse struct {
	Rule    types.AlertRule     `json:"rule"`
	Records []types.AlertRecord `json:"records"`
}

type advisoryResponse struct {
	types.Advisory
	Language string `json:"language"`
}

type reloadResponse struct {
	Source   string                `json:"source"`
	LoadedAt time.Time             `json:"loaded_at"`
	Summary  types.ForecastSummary `json:"summary"`
}

// HandleGetForecast handles GET /v1/forecast.
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Current(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, forecastResponse{
		Source:   v.Source,
		LoadedAt: v.LoadedAt,
		Points:   v.Points,
		Summary:  v.Summary,
	})
}

// HandleListAlerts handles GET /v1/alerts.
func (h *ForecastHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Current(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, alertsResponse{Rule: v.Summary.Rule, Records: v.Records})
}

// HandleAlertNow handles GET /v1/alerts/now.
func (h *ForecastHandler) HandleAlertNow(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Current(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, v.Summary)
}

// HandleGetAdvisory handles GET /v1/advisory?lang=.
func (h *ForecastHandler) HandleGetAdvisory(w http.ResponseWriter, r *http.Request) {
	lang, err := requestLanguage(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	v, err := h.service.Current(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Language", lang.Code())
	core.Data(w, r, http.StatusOK, advisoryResponse{Advisory: v.Advisory(lang), Language: lang.Code()})
}

// HandleExport handles GET /v1/forecast/export. The CSV is rendered into a
// buffer first so a failure still produces an error envelope.
func (h *ForecastHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Current(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := v.Export(&buf); err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleReload handles POST /v1/forecast/reload. The previous forecast
// keeps being served if the reload fails.
func (h *ForecastHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Reload(r.Context())
	if err != nil {
		h.logger.Warn("forecast reload failed", "error", err, "request_id", types.GetRequestID(r.Context()))
		core.Error(w, r, err)
		return
	}
	h.logger.Info("forecast reloaded", "source", v.Source, "points", len(v.Records), "alert_now", v.Summary.AlertNow)
	core.Data(w, r, http.StatusOK, reloadResponse{Source: v.Source, LoadedAt: v.LoadedAt, Summary: v.Summary})
}
