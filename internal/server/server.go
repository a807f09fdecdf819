package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telhawk-systems/stixbridge/internal/handlers"
	"github.com/telhawk-systems/stixbridge/internal/middleware"
)

// NewRouter wires HTTP routes for the stixbridge service.
func NewRouter(h *handlers.ConverterHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/convert", h.Convert)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)
	mux.Handle("/metrics", promhttp.Handler())
	return middleware.RequestID(mux)
}
