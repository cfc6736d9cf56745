package domain

import "time"

// Types below belong to the line simulator, which plays the backend side of
// the stream and REST surface.

type PolicyStatus string

const (
	PolicyDraft     PolicyStatus = "DRAFT"
	PolicyApproved  PolicyStatus = "APPROVED"
	PolicySuspended PolicyStatus = "SUSPENDED"
	PolicyRejected  PolicyStatus = "REJECTED"
)

type DecisionRule struct {
	ID        string `json:"id"`
	Priority  int    `json:"priority"`
	Condition string `json:"condition"`
	Action    Action `json:"action"`
	TargetBin string `json:"target_bin"`
}

type DefaultAction struct {
	Action    Action `json:"action"`
	TargetBin string `json:"target_bin"`
}

// Policy is a compiled sorting policy. Rules are evaluated by ascending
// priority.
type Policy struct {
	PolicyID        string         `json:"policy_id"`
	Version         string         `json:"version"`
	Status          PolicyStatus   `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	SourceDocuments []string       `json:"source_documents"`
	DecisionRules   []DecisionRule `json:"decision_rules"`
	DefaultAction   DefaultAction  `json:"default_action"`
}

// Document is an uploaded sorting procedure document.
type Document struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	SizeBytes   int       `json:"size_bytes"`
	Pages       int       `json:"pages"`
	TablesFound int       `json:"tables_found"`
	Sections    []string  `json:"sections"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type PartClassification struct {
	Color        string  `json:"color"`
	ColorHex     string  `json:"color_hex"`
	SizeMM       float64 `json:"size_mm"`
	SizeCategory string  `json:"size_category"`
	PartType     string  `json:"part_type"`
	Shape        string  `json:"shape"`
	Confidence   float64 `json:"confidence"`
}

type DefectInspection struct {
	DefectDetected    bool    `json:"defect_detected"`
	SurfaceQuality    string  `json:"surface_quality"`
	OverallConfidence float64 `json:"overall_confidence"`
}

type Decision struct {
	PartID           string  `json:"part_id"`
	TargetBin        string  `json:"target_bin"`
	Action           Action  `json:"action"`
	RuleID           string  `json:"rule_id"`
	RuleCondition    string  `json:"rule_condition"`
	Confidence       float64 `json:"confidence"`
	RequiresOperator bool    `json:"requires_operator"`
}

// InspectionResult is the data of an inspection envelope.
type InspectionResult struct {
	PartID           string             `json:"part_id"`
	Timestamp        time.Time          `json:"timestamp"`
	Classification   PartClassification `json:"classification"`
	DefectInspection DefectInspection   `json:"defect_inspection"`
	Decision         Decision           `json:"decision"`
}

type LineEventType string

const (
	EventDocumentParsed   LineEventType = "DOCUMENT_PARSED"
	EventPolicyCompiled   LineEventType = "POLICY_COMPILED"
	EventPolicyApproved   LineEventType = "POLICY_APPROVED"
	EventPolicyRejected   LineEventType = "POLICY_REJECTED"
	EventInspection       LineEventType = "INSPECTION"
	EventDecision         LineEventType = "DECISION"
	EventCommandSent      LineEventType = "COMMAND_SENT"
	EventOperatorOverride LineEventType = "OPERATOR_OVERRIDE"
	EventError            LineEventType = "ERROR"
	EventSystemStatus     LineEventType = "SYSTEM_STATUS"
)

// LineEvent is one entry of the simulator's audit log, served by GET /events.
type LineEvent struct {
	EventID        string                 `json:"event_id"`
	Timestamp      time.Time              `json:"timestamp"`
	EventType      LineEventType          `json:"event_type"`
	Agent          string                 `json:"agent"`
	Data           map[string]interface{} `json:"data"`
	SourceDocument string                 `json:"source_document,omitempty"`
}
