package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coach-gateway/internal/iocdb"
	"github.com/coach-gateway/internal/metrics"
	"github.com/coach-gateway/internal/moderation"
	"github.com/coach-gateway/internal/piiscan"
	"github.com/coach-gateway/internal/promptguard"
	"github.com/coach-gateway/pkg/models"
)

// IndicatorProvider serves the live indicator store and rebuilds it on
// demand. Implemented by cache.FeedCache.
type IndicatorProvider interface {
	Store() *iocdb.Store
	Invalidate(ctx context.Context) error
}

// IndicatorRepository persists indicator entries. Implemented by
// feeds.Repository.
type IndicatorRepository interface {
	List(ctx context.Context) ([]models.IndicatorEntry, error)
	Upsert(ctx context.Context, entry models.IndicatorEntry) error
	Delete(ctx context.Context, id string) error
}

// AuditSink accepts audit entries. Implemented by audit.Recorder.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	guard    *promptguard.Guard
	pii      *piiscan.Scanner
	mod      *moderation.Detector
	feed     IndicatorProvider
	repo     IndicatorRepository
	auditor  AuditSink
	hashFunc func(string) string
}

// NewHandler creates a new Handler with all dependencies. hashFunc
// fingerprints scanned content for the audit trail (audit.HashContent
// in production).
func NewHandler(
	guard *promptguard.Guard,
	pii *piiscan.Scanner,
	mod *moderation.Detector,
	feed IndicatorProvider,
	repo IndicatorRepository,
	auditor AuditSink,
	hashFunc func(string) string,
) *Handler {
	return &Handler{
		guard:    guard,
		pii:      pii,
		mod:      mod,
		feed:     feed,
		repo:     repo,
		auditor:  auditor,
		hashFunc: hashFunc,
	}
}

// HandleGuardScan scans text for prompt injection threats
// POST /v1/guard/scan
func (h *Handler) HandleGuardScan(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	result := h.guard.Scan(req.Text)
	profane := h.mod.IsProfane(req.Text)

	metrics.ScanRequestsTotal.WithLabelValues("guard").Inc()
	for _, threat := range result.Threats {
		metrics.ThreatsDetectedTotal.WithLabelValues(string(threat.Category), string(threat.Severity)).Inc()
	}

	requestID := uuid.New()
	latencyMs := time.Since(startTime).Milliseconds()

	outcome := "safe"
	if !result.Safe {
		outcome = "flagged"
	}
	h.recordAudit(r.Context(), models.AuditEntry{
		ID:          uuid.New(),
		RequestID:   requestID,
		ClientID:    req.ClientID,
		Engine:      "guard",
		ContentHash: h.hashFunc(req.Text),
		Outcome:     outcome,
		ThreatCount: len(result.Threats),
		RiskScore:   result.RiskScore,
		LatencyMs:   latencyMs,
		CreatedAt:   time.Now(),
	})

	respondJSON(w, http.StatusOK, models.GuardScanResponse{
		RequestID: requestID,
		Result:    result,
		Profane:   profane,
		LatencyMs: latencyMs,
	})
}

// HandleGuardEnforce scans text and applies the requested enforcement mode
// POST /v1/guard/enforce
func (h *Handler) HandleGuardEnforce(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.EnforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	switch req.Mode {
	case "", models.ModeBlock, models.ModeSanitize, models.ModeWarn:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown enforcement mode: %s", req.Mode))
		return
	}

	result := h.guard.Enforce(req.Text, req.Mode)

	metrics.ScanRequestsTotal.WithLabelValues("guard").Inc()
	metrics.EnforcementTotal.WithLabelValues(string(result.Outcome)).Inc()
	for _, threat := range result.Threats {
		metrics.ThreatsDetectedTotal.WithLabelValues(string(threat.Category), string(threat.Severity)).Inc()
	}

	requestID := uuid.New()
	latencyMs := time.Since(startTime).Milliseconds()

	h.recordAudit(r.Context(), models.AuditEntry{
		ID:          uuid.New(),
		RequestID:   requestID,
		ClientID:    req.ClientID,
		Engine:      "guard",
		ContentHash: h.hashFunc(req.Text),
		Outcome:     string(result.Outcome),
		ThreatCount: len(result.Threats),
		RiskScore:   result.RiskScore,
		LatencyMs:   latencyMs,
		CreatedAt:   time.Now(),
	})

	respondJSON(w, http.StatusOK, models.EnforceResponse{
		RequestID: requestID,
		Result:    result,
		LatencyMs: latencyMs,
	})
}

// HandlePIIScan scans text for personally identifiable information
// POST /v1/pii/scan
func (h *Handler) HandlePIIScan(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	result := h.pii.Scan(req.Text)

	metrics.ScanRequestsTotal.WithLabelValues("pii").Inc()
	for _, m := range result.Matches {
		metrics.PIIMatchesTotal.WithLabelValues(string(m.Type)).Inc()
	}

	requestID := uuid.New()
	latencyMs := time.Since(startTime).Milliseconds()

	outcome := "clean"
	if result.Found {
		outcome = "flagged"
	}
	h.recordAudit(r.Context(), models.AuditEntry{
		ID:          uuid.New(),
		RequestID:   requestID,
		ClientID:    req.ClientID,
		Engine:      "pii",
		ContentHash: h.hashFunc(req.Text),
		Outcome:     outcome,
		ThreatCount: len(result.Matches),
		LatencyMs:   latencyMs,
		CreatedAt:   time.Now(),
	})

	respondJSON(w, http.StatusOK, models.PIIScanResponse{
		RequestID: requestID,
		Result:    result,
		LatencyMs: latencyMs,
	})
}

// HandlePIIRedact redacts detected PII from text
// POST /v1/pii/redact
func (h *Handler) HandlePIIRedact(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.RedactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	switch req.Strategy {
	case "", models.RedactTypeLabel, models.RedactMask, models.RedactHash:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown redaction strategy: %s", req.Strategy))
		return
	}

	redacted := h.pii.Redact(req.Text, piiscan.RedactOptions{
		Types:    req.Types,
		Strategy: req.Strategy,
	})

	metrics.ScanRequestsTotal.WithLabelValues("pii").Inc()

	requestID := uuid.New()
	latencyMs := time.Since(startTime).Milliseconds()

	respondJSON(w, http.StatusOK, models.RedactResponse{
		RequestID: requestID,
		Redacted:  redacted,
		LatencyMs: latencyMs,
	})
}

// HandleIOCCheck extracts indicator candidates from free text and checks
// them against the live feed
// POST /v1/ioc/check
func (h *Handler) HandleIOCCheck(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	matches := h.feed.Store().Check(req.Text)

	metrics.ScanRequestsTotal.WithLabelValues("ioc").Inc()
	for _, m := range matches {
		metrics.IndicatorHitsTotal.WithLabelValues(string(m.Type)).Inc()
	}

	requestID := uuid.New()
	latencyMs := time.Since(startTime).Milliseconds()

	outcome := "clean"
	if len(matches) > 0 {
		outcome = "flagged"
	}
	h.recordAudit(r.Context(), models.AuditEntry{
		ID:          uuid.New(),
		RequestID:   requestID,
		ClientID:    req.ClientID,
		Engine:      "ioc",
		ContentHash: h.hashFunc(req.Text),
		Outcome:     outcome,
		ThreatCount: len(matches),
		LatencyMs:   latencyMs,
		CreatedAt:   time.Now(),
	})

	respondJSON(w, http.StatusOK, models.IOCCheckResponse{
		RequestID: requestID,
		Matches:   matches,
		LatencyMs: latencyMs,
	})
}

// HandleIOCLookup checks a single indicator passed as a query parameter
// GET /v1/ioc/check?domain=|ip=|hash=|url=
func (h *Handler) HandleIOCLookup(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	store := h.feed.Store()

	var match *models.IndicatorMatch
	q := r.URL.Query()
	switch {
	case q.Get("domain") != "":
		match = store.CheckDomain(q.Get("domain"))
	case q.Get("ip") != "":
		match = store.CheckIP(q.Get("ip"))
	case q.Get("hash") != "":
		match = store.CheckHash(q.Get("hash"))
	case q.Get("url") != "":
		match = store.CheckURL(q.Get("url"))
	default:
		respondError(w, http.StatusBadRequest, "one of domain, ip, hash, or url is required")
		return
	}

	metrics.ScanRequestsTotal.WithLabelValues("ioc").Inc()

	matches := []models.IndicatorMatch{}
	if match != nil {
		matches = append(matches, *match)
		metrics.IndicatorHitsTotal.WithLabelValues(string(match.Type)).Inc()
	}

	respondJSON(w, http.StatusOK, models.IOCCheckResponse{
		RequestID: uuid.New(),
		Matches:   matches,
		LatencyMs: time.Since(startTime).Milliseconds(),
	})
}

// HandleIOCStats returns the current indicator store contents summary
// GET /v1/ioc/stats
func (h *Handler) HandleIOCStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.feed.Store().Stats())
}

// HandleListIndicators returns all stored indicators
// GET /v1/indicators
func (h *Handler) HandleListIndicators(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List(r.Context())
	if err != nil {
		log.Printf("Error listing indicators: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list indicators")
		return
	}
	if entries == nil {
		entries = []models.IndicatorEntry{}
	}

	respondJSON(w, http.StatusOK, entries)
}

// HandleCreateIndicator registers a new indicator and rebuilds the
// in-memory store
// POST /v1/indicators
func (h *Handler) HandleCreateIndicator(w http.ResponseWriter, r *http.Request) {
	var entry models.IndicatorEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	switch entry.Type {
	case models.IndicatorDomain, models.IndicatorIP, models.IndicatorHash, models.IndicatorURLPattern:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown indicator type: %s", entry.Type))
		return
	}
	if entry.Value == "" {
		respondError(w, http.StatusBadRequest, "value is required")
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}

	if err := h.repo.Upsert(r.Context(), entry); err != nil {
		log.Printf("Error creating indicator: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create indicator")
		return
	}
	if err := h.feed.Invalidate(r.Context()); err != nil {
		log.Printf("Error refreshing indicator feed: %v", err)
	}

	respondJSON(w, http.StatusCreated, entry)
}

// HandleDeleteIndicator removes an indicator by ID
// DELETE /v1/indicators/{id}
func (h *Handler) HandleDeleteIndicator(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/indicators/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, http.StatusBadRequest, "indicator id is required")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		log.Printf("Error deleting indicator: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete indicator")
		return
	}
	if err := h.feed.Invalidate(r.Context()); err != nil {
		log.Printf("Error refreshing indicator feed: %v", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth returns service health status
// GET /v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
	})
}

// recordAudit enqueues an audit entry. Audit failures never fail the
// request.
func (h *Handler) recordAudit(ctx context.Context, entry models.AuditEntry) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Record(ctx, entry); err != nil {
		log.Printf("Failed to record audit entry: %v", err)
	}
}

// Helper functions

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
