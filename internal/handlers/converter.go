package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/telhawk-systems/stixbridge/internal/service"
)

// ConverterHandler manages translation HTTP endpoints.
type ConverterHandler struct {
	converter *service.Converter
}

// NewConverterHandler constructs a new handler.
func NewConverterHandler(c *service.Converter) *ConverterHandler {
	return &ConverterHandler{converter: c}
}

// ConvertResponse returns the bundles produced for each event of the export.
type ConvertResponse struct {
	Results []service.Result `json:"results"`
}

// Convert handles POST /api/v1/convert requests. The body is a raw MISP
// export document, single event or response-wrapped.
func (h *ConverterHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.converter.Convert(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "conversion_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ConvertResponse{Results: results})
}

// Health handles GET /healthz.
func (h *ConverterHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.converter.Health())
}

// Ready handles GET /readyz. Readiness includes which optional sinks are
// attached so orchestration can tell a bare converter from a wired one.
func (h *ConverterHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"sinks":  h.converter.Health(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	type errorBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method is not allowed")
}
