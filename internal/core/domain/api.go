package domain

// Request and response bodies of the line backend REST surface.

type StatusResponse struct {
	Status              string  `json:"status"`
	Camera              bool    `json:"camera"`
	CameraBackend       string  `json:"camera_backend"`
	ActivePolicy        *string `json:"active_policy"`
	PartCounter         int     `json:"part_counter"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	WSClients           int     `json:"ws_clients"`
}

type DocumentUploadResponse struct {
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	Pages       int      `json:"pages"`
	TablesFound int      `json:"tables_found"`
	Sections    []string `json:"sections"`
	ParseTimeMs float64  `json:"parse_time_ms"`
}

type PolicyApprovalRequest struct {
	OperatorID string `json:"operator_id"`
}

type InspectRequest struct {
	UseCamera   bool   `json:"use_camera"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type OverrideRequest struct {
	PartID      string `json:"part_id" binding:"required"`
	OverrideBin string `json:"override_bin" binding:"required"`
	Reason      string `json:"reason"`
	OperatorID  string `json:"operator_id"`
}

type QARequest struct {
	Question string `json:"question" binding:"required"`
}

type QAResponse struct {
	Answer           string   `json:"answer"`
	EventsReferenced []string `json:"events_referenced"`
}

// ShiftStats is the backend's own running tally, served by GET /stats.
type ShiftStats struct {
	TotalInspected    int     `json:"total_inspected"`
	Passed            int     `json:"passed"`
	Rejected          int     `json:"rejected"`
	ManualReviews     int     `json:"manual_reviews"`
	OperatorOverrides int     `json:"operator_overrides"`
	PassRate          float64 `json:"pass_rate"`
	AvgConfidence     float64 `json:"avg_confidence"`
}
