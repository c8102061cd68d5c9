// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hylla/fieldboard/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// OwnerHeader carries the requesting owner id for owner-scoped dashboard calls.
const OwnerHeader = "X-Fieldboard-Owner"

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	dashboards common.DashboardService
	layouts    common.LayoutService
	router     chi.Router
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter from dashboard and layout services.
func NewHandler(dashboards common.DashboardService, layouts common.LayoutService) *Handler {
	h := &Handler{
		dashboards: dashboards,
		layouts:    layouts,
	}
	h.router = h.routes()
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes builds the chi router for every REST endpoint.
func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(ownerFromHeader)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Get("/breakpoints", h.handleListBreakpoints)
	r.Post("/pack", h.handlePack)

	r.Route("/dashboards", func(r chi.Router) {
		r.Get("/", h.handleListDashboards)
		r.Post("/", h.handleCreateDashboard)
		r.Route("/{dashboardID}", func(r chi.Router) {
			r.Get("/", h.handleGetDashboard)
			r.Post("/archive", h.handleArchiveDashboard)
			r.Post("/restore", h.handleRestoreDashboard)
			r.Get("/widgets", h.handleListWidgets)
			r.Post("/widgets", h.handleAddWidget)
			r.Get("/layout/{breakpoint}", h.handleCurrentLayout)
			r.Post("/layout/{breakpoint}", h.handleRelayout)
		})
	})

	r.Route("/widgets/{widgetID}", func(r chi.Router) {
		r.Patch("/size", h.handleResizeWidget)
		r.Post("/move", h.handleMoveWidget)
		r.Delete("/", h.handleRemoveWidget)
	})
	return r
}

// ownerFromHeader copies the owner header into request context.
func ownerFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
			r = r.WithContext(common.WithOwner(r.Context(), owner))
		}
		next.ServeHTTP(w, r)
	})
}

// handleListDashboards serves GET `/dashboards`.
func (h *Handler) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	includeArchived, err := parseOptionalBool(r.URL.Query().Get("include_archived"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	dashboards, err := h.dashboards.ListDashboards(r.Context(), common.ListDashboardsRequest{
		OwnerID:         strings.TrimSpace(r.URL.Query().Get("owner_id")),
		IncludeArchived: includeArchived,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dashboards": dashboards,
	})
}

// handleCreateDashboard serves POST `/dashboards`.
func (h *Handler) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	var req common.CreateDashboardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	dashboard, err := h.dashboards.CreateDashboard(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dashboard)
}

// handleGetDashboard serves GET `/dashboards/{id}`.
func (h *Handler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	dashboard, err := h.dashboards.GetDashboard(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleArchiveDashboard serves POST `/dashboards/{id}/archive`.
func (h *Handler) handleArchiveDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	dashboard, err := h.dashboards.ArchiveDashboard(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleRestoreDashboard serves POST `/dashboards/{id}/restore`.
func (h *Handler) handleRestoreDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	dashboard, err := h.dashboards.RestoreDashboard(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleListWidgets serves GET `/dashboards/{id}/widgets`.
func (h *Handler) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	widgets, err := h.dashboards.ListWidgets(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"widgets": widgets,
	})
}

// handleAddWidget serves POST `/dashboards/{id}/widgets`.
func (h *Handler) handleAddWidget(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	var req common.AddWidgetRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.DashboardID = chi.URLParam(r, "dashboardID")
	widget, err := h.dashboards.AddWidget(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, widget)
}

// handleResizeWidget serves PATCH `/widgets/{id}/size`.
func (h *Handler) handleResizeWidget(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	var req common.ResizeWidgetRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.WidgetID = chi.URLParam(r, "widgetID")
	widget, err := h.dashboards.ResizeWidget(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

// handleMoveWidget serves POST `/widgets/{id}/move`.
func (h *Handler) handleMoveWidget(w http.ResponseWriter, r *http.Request) {
	if !h.requireLayouts(w) {
		return
	}
	var req common.MoveWidgetRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.WidgetID = chi.URLParam(r, "widgetID")
	layout, err := h.layouts.MoveWidget(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// handleRemoveWidget serves DELETE `/widgets/{id}`.
func (h *Handler) handleRemoveWidget(w http.ResponseWriter, r *http.Request) {
	if !h.requireDashboards(w) {
		return
	}
	if err := h.dashboards.RemoveWidget(r.Context(), chi.URLParam(r, "widgetID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCurrentLayout serves GET `/dashboards/{id}/layout/{breakpoint}`.
func (h *Handler) handleCurrentLayout(w http.ResponseWriter, r *http.Request) {
	if !h.requireLayouts(w) {
		return
	}
	layout, err := h.layouts.CurrentLayout(r.Context(), layoutRequestFrom(r))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// handleRelayout serves POST `/dashboards/{id}/layout/{breakpoint}`.
func (h *Handler) handleRelayout(w http.ResponseWriter, r *http.Request) {
	if !h.requireLayouts(w) {
		return
	}
	layout, err := h.layouts.Relayout(r.Context(), layoutRequestFrom(r))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// handleListBreakpoints serves GET `/breakpoints`.
func (h *Handler) handleListBreakpoints(w http.ResponseWriter, r *http.Request) {
	if !h.requireLayouts(w) {
		return
	}
	breakpoints, err := h.layouts.ListBreakpoints(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"breakpoints": breakpoints,
	})
}

// handlePack serves POST `/pack`.
func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	if !h.requireLayouts(w) {
		return
	}
	var req common.PackRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.layouts.Pack(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// requireDashboards writes a 501 when dashboard APIs are not configured.
func (h *Handler) requireDashboards(w http.ResponseWriter) bool {
	if h.dashboards != nil {
		return true
	}
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: "dashboard APIs are not available",
	})
	return false
}

// requireLayouts writes a 501 when layout APIs are not configured.
func (h *Handler) requireLayouts(w http.ResponseWriter) bool {
	if h.layouts != nil {
		return true
	}
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: "layout APIs are not available",
	})
	return false
}

// layoutRequestFrom reads dashboard and breakpoint route params.
func layoutRequestFrom(r *http.Request) common.LayoutRequest {
	return common.LayoutRequest{
		DashboardID: chi.URLParam(r, "dashboardID"),
		Breakpoint:  chi.URLParam(r, "breakpoint"),
	}
}

// parseOptionalBool parses one optional boolean query value.
func parseOptionalBool(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q: %w", raw, common.ErrInvalidRequest)
	}
	return v, nil
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrInvalidWidth):
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    "invalid_width",
			Message: err.Error(),
			Hint:    "Use a narrower size or a custom width that fits the smallest breakpoint.",
		})
	case errors.Is(err, common.ErrPackingExhausted):
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "packing_exhausted",
			Message: err.Error(),
			Hint:    "The stored layout was left unchanged.",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
			Hint:    "Restore the dashboard before changing it.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
