package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coach-gateway/internal/metrics"
)

// SetupRoutes configures all HTTP routes.
// Go's http.ServeMux doesn't support method-based routing natively, so
// each route is wrapped with a method filter.
func SetupRoutes(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/guard/scan", withMiddleware(handler.HandleGuardScan, "POST"))
	mux.HandleFunc("/v1/guard/enforce", withMiddleware(handler.HandleGuardEnforce, "POST"))
	mux.HandleFunc("/v1/pii/scan", withMiddleware(handler.HandlePIIScan, "POST"))
	mux.HandleFunc("/v1/pii/redact", withMiddleware(handler.HandlePIIRedact, "POST"))
	mux.HandleFunc("/v1/ioc/check", withMiddleware(iocCheckHandler(handler), "GET", "POST"))
	mux.HandleFunc("/v1/ioc/stats", withMiddleware(handler.HandleIOCStats, "GET"))
	mux.HandleFunc("/v1/indicators", withMiddleware(indicatorsHandler(handler), "GET", "POST"))
	mux.HandleFunc("/v1/indicators/", withMiddleware(handler.HandleDeleteIndicator, "DELETE"))
	mux.HandleFunc("/v1/health", withMiddleware(handler.HandleHealth, "GET"))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// iocCheckHandler routes free-text sweeps (POST) and single-indicator
// query lookups (GET) to the right handler
func iocCheckHandler(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleIOCLookup(w, r)
		case http.MethodPost:
			h.HandleIOCCheck(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// indicatorsHandler routes GET/POST on the collection to the right handler
func indicatorsHandler(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListIndicators(w, r)
		case http.MethodPost:
			h.HandleCreateIndicator(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// statusRecorder captures the status code written by a handler so the
// middleware can label metrics with it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// withMiddleware wraps a handler with request ID generation, CORS,
// method filtering, logging, and Prometheus instrumentation.
func withMiddleware(handler http.HandlerFunc, allowedMethods ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Generate request ID for tracing
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		// Add CORS headers (for browser-based clients)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		// Check if method is allowed
		methodAllowed := false
		for _, method := range allowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		// Log request
		start := time.Now()
		log.Printf("[%s] %s %s - Started", requestID, r.Method, r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r)

		// Log completion and record metrics
		duration := time.Since(start)
		log.Printf("[%s] %s %s - Completed in %v", requestID, r.Method, r.URL.Path, duration)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	}
}
