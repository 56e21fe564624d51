package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how dangerous a detection is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the risk-score contribution of a severity.
// Risk scores are capped at 100 by the caller.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 40
	case SeverityHigh:
		return 25
	case SeverityMedium:
		return 15
	case SeverityLow:
		return 5
	}
	return 0
}

// Rank returns a numeric rank for severity comparison (higher is worse).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// IndicatorType identifies the shape of an indicator-of-compromise value.
type IndicatorType string

const (
	IndicatorDomain     IndicatorType = "domain"
	IndicatorIP         IndicatorType = "ip"
	IndicatorHash       IndicatorType = "hash"
	IndicatorURLPattern IndicatorType = "url_pattern"
)

// IndicatorEntry is a single known-bad indicator registered with the store.
// IP values may be an exact address or CIDR notation; url_pattern values are
// regular expressions compiled case-insensitively at insert time.
type IndicatorEntry struct {
	ID          string        `json:"id"`
	Type        IndicatorType `json:"type"`
	Value       string        `json:"value"`
	Category    string        `json:"category"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description,omitempty"`
	Source      string        `json:"source,omitempty"`
	AddedAt     time.Time     `json:"added_at"`
}

// IndicatorMatch is the result of a successful indicator lookup.
// MatchedInput is the original input that triggered the match; it differs
// from Indicator when a URL resolved to a registered host or IP.
type IndicatorMatch struct {
	Indicator    string        `json:"indicator"`
	Type         IndicatorType `json:"type"`
	Category     string        `json:"category"`
	Severity     Severity      `json:"severity"`
	Description  string        `json:"description,omitempty"`
	MatchedInput string        `json:"matched_input"`
}

// IndicatorStats summarizes the current contents of an indicator store.
type IndicatorStats struct {
	TotalIndicators int                   `json:"total_indicators"`
	ByType          map[IndicatorType]int `json:"by_type"`
	ByCategory      map[string]int        `json:"by_category"`
	LastUpdated     time.Time             `json:"last_updated"`
}

// ThreatCategory groups prompt-guard detections.
type ThreatCategory string

const (
	CategoryGoalHijacking        ThreatCategory = "goal_hijacking"
	CategoryInstructionInjection ThreatCategory = "instruction_injection"
	CategoryJailbreaking         ThreatCategory = "jailbreaking"
	CategoryDataExfiltration     ThreatCategory = "data_exfiltration"
	CategoryEncodingEvasion      ThreatCategory = "encoding_evasion"
)

// Threat is a single prompt-guard detection.
type Threat struct {
	Pattern     string         `json:"pattern"`
	Category    ThreatCategory `json:"category"`
	Severity    Severity       `json:"severity"`
	MatchedText string         `json:"matched_text"`
}

// GuardResult is the outcome of a prompt-guard scan.
type GuardResult struct {
	Safe      bool     `json:"safe"`
	Threats   []Threat `json:"threats"`
	RiskScore int      `json:"risk_score"`
}

// EnforcementMode selects how the prompt guard reacts to threats.
type EnforcementMode string

const (
	ModeBlock    EnforcementMode = "block"
	ModeSanitize EnforcementMode = "sanitize"
	ModeWarn     EnforcementMode = "warn"
)

// EnforcementOutcome tags an enforcement result. Blocking is expected
// control flow, so it is modeled as a result variant rather than an error.
type EnforcementOutcome string

const (
	OutcomeBlocked   EnforcementOutcome = "blocked"
	OutcomeSanitized EnforcementOutcome = "sanitized"
	OutcomePassed    EnforcementOutcome = "passed"
)

// EnforcementResult carries the outcome of Enforce. Text holds the input
// (passed) or the sanitized form (sanitized); it is empty when blocked.
// Threats and RiskScore are always populated from the underlying scan.
type EnforcementResult struct {
	Outcome   EnforcementOutcome `json:"outcome"`
	Text      string             `json:"text,omitempty"`
	Threats   []Threat           `json:"threats"`
	RiskScore int                `json:"risk_score"`
}

// Blocked reports whether enforcement rejected the input.
func (r EnforcementResult) Blocked() bool {
	return r.Outcome == OutcomeBlocked
}

// PIIType identifies a category of personally identifiable information.
type PIIType string

const (
	PIIEmail       PIIType = "email"
	PIIPhone       PIIType = "phone"
	PIISSN         PIIType = "ssn"
	PIICreditCard  PIIType = "credit_card"
	PIIIPAddress   PIIType = "ip_address"
	PIIAWSKey      PIIType = "aws_key"
	PIIAPIKey      PIIType = "api_key"
	PIIPassword    PIIType = "password"
	PIIAddress     PIIType = "address"
	PIIDateOfBirth PIIType = "date_of_birth"
)

// Confidence expresses how certain the scanner is about a PII match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PIIMatch is a single detected PII value with byte offsets into the
// scanned text (Start inclusive, End exclusive).
type PIIMatch struct {
	Type       PIIType    `json:"type"`
	Value      string     `json:"value"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence Confidence `json:"confidence"`
}

// PIIScanResult is the outcome of a PII scan. Matches are sorted by start
// offset; Summary holds per-category counts.
type PIIScanResult struct {
	Found   bool            `json:"found"`
	Matches []PIIMatch      `json:"matches"`
	Summary map[PIIType]int `json:"summary"`
}

// RedactStrategy selects how matched PII values are replaced.
type RedactStrategy string

const (
	RedactTypeLabel RedactStrategy = "type_label" // [TYPE REDACTED]
	RedactMask      RedactStrategy = "mask"       // first+last kept, middle starred
	RedactHash      RedactStrategy = "hash"       // [TYPE:xxxxxxxx]
)

// ScanRequest is the input for the guard and PII scan endpoints.
type ScanRequest struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
}

// EnforceRequest is the input for the guard enforcement endpoint.
type EnforceRequest struct {
	ClientID string          `json:"client_id"`
	Text     string          `json:"text"`
	Mode     EnforcementMode `json:"mode,omitempty"`
}

// RedactRequest is the input for the PII redaction endpoint.
type RedactRequest struct {
	ClientID string         `json:"client_id"`
	Text     string         `json:"text"`
	Types    []PIIType      `json:"types,omitempty"`
	Strategy RedactStrategy `json:"strategy,omitempty"`
}

// GuardScanResponse wraps a guard scan with request metadata and the
// moderation signal.
type GuardScanResponse struct {
	RequestID uuid.UUID   `json:"request_id"`
	Result    GuardResult `json:"result"`
	Profane   bool        `json:"profane"`
	LatencyMs int64       `json:"latency_ms"`
}

// EnforceResponse wraps an enforcement decision with request metadata.
type EnforceResponse struct {
	RequestID uuid.UUID         `json:"request_id"`
	Result    EnforcementResult `json:"result"`
	LatencyMs int64             `json:"latency_ms"`
}

// PIIScanResponse wraps a PII scan with request metadata.
type PIIScanResponse struct {
	RequestID uuid.UUID     `json:"request_id"`
	Result    PIIScanResult `json:"result"`
	LatencyMs int64         `json:"latency_ms"`
}

// RedactResponse carries redacted text with request metadata.
type RedactResponse struct {
	RequestID uuid.UUID `json:"request_id"`
	Redacted  string    `json:"redacted"`
	LatencyMs int64     `json:"latency_ms"`
}

// IOCCheckResponse lists the indicator matches found in free text.
type IOCCheckResponse struct {
	RequestID uuid.UUID        `json:"request_id"`
	Matches   []IndicatorMatch `json:"matches"`
	LatencyMs int64            `json:"latency_ms"`
}

// AuditEntry records a scan decision for the audit trail. Content is never
// stored, only its hash.
type AuditEntry struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"request_id"`
	ClientID    string    `json:"client_id"`
	Engine      string    `json:"engine"`
	ContentHash string    `json:"content_hash"`
	Outcome     string    `json:"outcome"`
	ThreatCount int       `json:"threat_count"`
	RiskScore   int       `json:"risk_score"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
