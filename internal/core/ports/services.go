package ports

import (
	"context"

	"floorview/internal/core/domain"
)

// EventBroadcaster fans an envelope out to every connected stream client.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, kind domain.EventKind, data interface{}) error
	ClientCount() int
}

// LineMetrics receives simulator counters.
type LineMetrics interface {
	RecordInspection(action domain.Action)
}

type LineService interface {
	Status(ctx context.Context) domain.StatusResponse

	UploadDocument(ctx context.Context, filename string, content []byte) (*domain.DocumentUploadResponse, error)
	ListDocuments(ctx context.Context) ([]*domain.Document, error)

	CompilePolicy(ctx context.Context, documentID string) (*domain.Policy, error)
	ListPolicies(ctx context.Context) ([]*domain.Policy, error)
	ActivePolicy(ctx context.Context) (*domain.Policy, error)
	ApprovePolicy(ctx context.Context, policyID, operatorID string) (*domain.Policy, error)
	RejectPolicy(ctx context.Context, policyID string) (*domain.Policy, error)
	SuspendPolicy(ctx context.Context, policyID string) (*domain.Policy, error)
	SetConfidenceThreshold(v float64) float64

	Inspect(ctx context.Context, req domain.InspectRequest) (*domain.InspectionResult, error)
	Override(ctx context.Context, req domain.OverrideRequest) error

	Ask(ctx context.Context, question string) (*domain.QAResponse, error)
	Events(ctx context.Context, limit int) ([]domain.LineEvent, error)
	Stats(ctx context.Context) domain.ShiftStats
}
