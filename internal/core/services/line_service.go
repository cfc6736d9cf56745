package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
	"floorview/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LineOptions struct {
	ConfidenceThreshold float64
	ConfidenceLow       float64
	CameraBackend       string
	// Rand drives part classification. Seeded from the clock when nil.
	Rand *rand.Rand
	Now  func() time.Time
}

// LineService simulates the sorting line backend: document intake, policy
// lifecycle, part inspection and the audit log.
type LineService struct {
	policies    ports.PolicyRepository
	documents   ports.DocumentRepository
	events      ports.EventRepository
	broadcaster ports.EventBroadcaster
	metrics     ports.LineMetrics
	logger      *zap.SugaredLogger

	mu          sync.Mutex
	activeID    string
	partCounter int
	stats       domain.ShiftStats
	threshold   float64
	low         float64
	backend     string
	rng         *rand.Rand
	now         func() time.Time
}

func NewLineService(
	policies ports.PolicyRepository,
	documents ports.DocumentRepository,
	events ports.EventRepository,
	broadcaster ports.EventBroadcaster,
	metrics ports.LineMetrics,
	opts LineOptions,
	logger *zap.SugaredLogger,
) *LineService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		seed := uint64(opts.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if opts.CameraBackend == "" {
		opts.CameraBackend = "synthetic"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LineService{
		policies:    policies,
		documents:   documents,
		events:      events,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		threshold:   opts.ConfidenceThreshold,
		low:         opts.ConfidenceLow,
		backend:     opts.CameraBackend,
		rng:         opts.Rand,
		now:         opts.Now,
	}
}

func (s *LineService) Status(ctx context.Context) domain.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := domain.StatusResponse{
		Status:              "running",
		Camera:              true,
		CameraBackend:       s.backend,
		PartCounter:         s.partCounter,
		ConfidenceThreshold: s.threshold,
	}
	if s.activeID != "" {
		id := s.activeID
		resp.ActivePolicy = &id
	}
	if s.broadcaster != nil {
		resp.WSClients = s.broadcaster.ClientCount()
	}
	return resp
}

// SetConfidenceThreshold clamps v to [0,1] and returns the stored value.
func (s *LineService) SetConfidenceThreshold(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = math.Max(0, math.Min(1, v))
	return s.threshold
}

func (s *LineService) UploadDocument(ctx context.Context, filename string, content []byte) (*domain.DocumentUploadResponse, error) {
	started := time.Now()
	if filename == "" {
		filename = "upload-" + uuid.NewString()[:8]
	}

	doc := parseDocument(filename, content)
	doc.DocumentID = uuid.NewString()
	tracing.AddSpanAttributes(ctx, tracing.DocumentIDKey.String(doc.DocumentID))
	doc.UploadedAt = s.now()
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	resp := &domain.DocumentUploadResponse{
		DocumentID:  doc.DocumentID,
		Filename:    doc.Filename,
		Pages:       doc.Pages,
		TablesFound: doc.TablesFound,
		Sections:    doc.Sections,
		ParseTimeMs: float64(time.Since(started).Microseconds()) / 1000,
	}

	s.record(ctx, domain.EventDocumentParsed, "document_agent", filename, map[string]interface{}{
		"document_id":   doc.DocumentID,
		"filename":      filename,
		"pages":         doc.Pages,
		"tables_found":  doc.TablesFound,
		"sections":      doc.Sections,
		"parse_time_ms": resp.ParseTimeMs,
	})
	s.broadcast(ctx, domain.KindStatus, map[string]interface{}{
		"message":     "Document parsed: " + filename,
		"document_id": doc.DocumentID,
	})

	s.logger.Infow("document parsed",
		"document_id", doc.DocumentID,
		"filename", filename,
		"sections", len(doc.Sections),
	)
	return resp, nil
}

func (s *LineService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return s.documents.List(ctx)
}

func (s *LineService) CompilePolicy(ctx context.Context, documentID string) (*domain.Policy, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	policy := DefaultPolicy(doc.Filename, now)
	policy.PolicyID, err = s.nextPolicyID(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := s.policies.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	tracing.AddSpanAttributes(ctx,
		tracing.DocumentIDKey.String(documentID),
		tracing.PolicyIDKey.String(policy.PolicyID),
	)
	s.record(ctx, domain.EventPolicyCompiled, "policy_agent", doc.Filename, map[string]interface{}{
		"policy_id":   policy.PolicyID,
		"document_id": documentID,
		"rules":       len(policy.DecisionRules),
	})
	s.broadcast(ctx, domain.KindPolicyUpdate, map[string]interface{}{"policy": policy})

	s.logger.Infow("policy compiled",
		"policy_id", policy.PolicyID,
		"document_id", documentID,
	)
	return policy, nil
}

func (s *LineService) nextPolicyID(ctx context.Context, now time.Time) (string, error) {
	base := "policy-" + now.Format("20060102-150405")
	id := base
	for n := 2; ; n++ {
		_, err := s.policies.GetByID(ctx, id)
		if errors.Is(err, domain.ErrPolicyNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check policy id: %w", err)
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *LineService) ListPolicies(ctx context.Context) ([]*domain.Policy, error) {
	return s.policies.List(ctx)
}

func (s *LineService) ActivePolicy(ctx context.Context) (*domain.Policy, error) {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()

	if id == "" {
		return nil, domain.ErrNoActivePolicy
	}
	return s.policies.GetByID(ctx, id)
}

// ApprovePolicy marks the policy approved and makes it the active one.
func (s *LineService) ApprovePolicy(ctx context.Context, policyID, operatorID string) (*domain.Policy, error) {
	tracing.AddSpanAttributes(ctx, tracing.PolicyIDKey.String(policyID))
	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	policy.Status = domain.PolicyApproved
	policy.ApprovedBy = operatorID
	policy.ApprovedAt = &now
	if err := s.policies.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	s.mu.Lock()
	s.activeID = policy.PolicyID
	s.mu.Unlock()

	s.record(ctx, domain.EventPolicyApproved, "operator", "", map[string]interface{}{
		"policy_id":   policy.PolicyID,
		"operator_id": operatorID,
	})
	s.broadcast(ctx, domain.KindPolicyUpdate, map[string]interface{}{
		"policy": policy,
		"action": "approved",
	})

	s.logger.Infow("policy approved",
		"policy_id", policy.PolicyID,
		"operator_id", operatorID,
	)
	return policy, nil
}

func (s *LineService) RejectPolicy(ctx context.Context, policyID string) (*domain.Policy, error) {
	policy, err := s.setStatus(ctx, policyID, domain.PolicyRejected)
	if err != nil {
		return nil, err
	}
	s.record(ctx, domain.EventPolicyRejected, "operator", "", map[string]interface{}{
		"policy_id": policyID,
	})
	return policy, nil
}

// SuspendPolicy takes the policy out of service. Inspection stops when it was
// the active one.
func (s *LineService) SuspendPolicy(ctx context.Context, policyID string) (*domain.Policy, error) {
	policy, err := s.setStatus(ctx, policyID, domain.PolicySuspended)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, domain.KindPolicyUpdate, map[string]interface{}{
		"policy": policy,
		"action": "suspended",
	})
	return policy, nil
}

func (s *LineService) setStatus(ctx context.Context, policyID string, status domain.PolicyStatus) (*domain.Policy, error) {
	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	policy.Status = status
	if err := s.policies.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	s.mu.Lock()
	if s.activeID == policyID {
		s.activeID = ""
	}
	s.mu.Unlock()

	s.logger.Infow("policy status changed",
		"policy_id", policyID,
		"status", status,
	)
	return policy, nil
}

// Inspect classifies the next part on the line against the active policy and
// announces the result to stream clients.
func (s *LineService) Inspect(ctx context.Context, req domain.InspectRequest) (*domain.InspectionResult, error) {
	policy, err := s.ActivePolicy(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.partCounter++
	partID := fmt.Sprintf("part-%04d", s.partCounter)
	facts, class, defect := s.samplePart()
	threshold, low := s.threshold, s.low
	s.mu.Unlock()

	result := &domain.InspectionResult{
		PartID:           partID,
		Timestamp:        s.now(),
		Classification:   class,
		DefectInspection: defect,
	}

	decision := domain.Decision{
		PartID:     partID,
		TargetBin:  policy.DefaultAction.TargetBin,
		Action:     policy.DefaultAction.Action,
		RuleID:     "DEFAULT",
		Confidence: facts.Confidence,
	}
	if rule, ok := evaluatePolicy(policy, facts); ok {
		decision.TargetBin = rule.TargetBin
		decision.Action = rule.Action
		decision.RuleID = rule.ID
		decision.RuleCondition = rule.Condition
	}
	if facts.Confidence < threshold && facts.Confidence >= low {
		decision.RequiresOperator = true
	}
	result.Decision = decision
	tracing.AddSpanAttributes(ctx,
		tracing.PolicyIDKey.String(policy.PolicyID),
		tracing.PartIDKey.String(partID),
		tracing.BinKey.String(decision.TargetBin),
	)

	s.mu.Lock()
	s.foldStatsLocked(decision.Action, facts.Confidence)
	s.mu.Unlock()

	source := ""
	if len(policy.SourceDocuments) > 0 {
		source = policy.SourceDocuments[0]
	}
	s.record(ctx, domain.EventInspection, "vision_agent", source, map[string]interface{}{
		"part_id":         partID,
		"color":           class.Color,
		"size_mm":         class.SizeMM,
		"defect_detected": defect.DefectDetected,
		"confidence":      facts.Confidence,
		"action":          decision.Action,
		"target_bin":      decision.TargetBin,
		"rule_id":         decision.RuleID,
	})

	s.broadcast(ctx, domain.KindFactoryFloor, floorMove(domain.AnimationPick, "", partID, class.Color))
	s.broadcast(ctx, domain.KindInspection, result)
	s.broadcast(ctx, domain.KindFactoryFloor, floorMove(domain.AnimationPlace, decision.TargetBin, partID, class.Color))

	if s.metrics != nil {
		s.metrics.RecordInspection(decision.Action)
	}
	s.logger.Debugw("part inspected",
		"part_id", partID,
		"target_bin", decision.TargetBin,
		"action", decision.Action,
		"confidence", facts.Confidence,
	)
	return result, nil
}

// Override reroutes an already inspected part.
func (s *LineService) Override(ctx context.Context, req domain.OverrideRequest) error {
	s.mu.Lock()
	s.stats.OperatorOverrides++
	s.mu.Unlock()

	tracing.AddSpanAttributes(ctx,
		tracing.PartIDKey.String(req.PartID),
		tracing.BinKey.String(req.OverrideBin),
	)
	s.broadcast(ctx, domain.KindFactoryFloor, floorMove(domain.AnimationPlace, req.OverrideBin, req.PartID, ""))
	s.record(ctx, domain.EventOperatorOverride, "operator", "", map[string]interface{}{
		"part_id":      req.PartID,
		"override_bin": req.OverrideBin,
		"reason":       req.Reason,
		"operator_id":  req.OperatorID,
	})
	s.broadcast(ctx, domain.KindDecision, map[string]interface{}{
		"part_id":      req.PartID,
		"override_bin": req.OverrideBin,
		"action":       "OPERATOR_OVERRIDE",
	})

	s.logger.Infow("operator override",
		"part_id", req.PartID,
		"override_bin", req.OverrideBin,
		"operator_id", req.OperatorID,
	)
	return nil
}

// Ask answers operator questions from the shift tally and the audit log.
func (s *LineService) Ask(ctx context.Context, question string) (*domain.QAResponse, error) {
	recent, err := s.events.Recent(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	stats := s.Stats(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "%d parts inspected this shift, pass rate %.1f%%, %d rejected, %d sent to manual review.",
		stats.TotalInspected, stats.PassRate*100, stats.Rejected, stats.ManualReviews)

	if policy, err := s.ActivePolicy(ctx); err == nil {
		fmt.Fprintf(&b, " Active policy %s has %d rules.", policy.PolicyID, len(policy.DecisionRules))
	} else {
		b.WriteString(" No policy is active.")
	}

	refs := make([]string, 0, len(recent))
	for _, ev := range recent {
		refs = append(refs, ev.EventID)
	}
	if len(recent) > 0 {
		fmt.Fprintf(&b, " Last event: %s by %s.", recent[0].EventType, recent[0].Agent)
	}

	return &domain.QAResponse{Answer: b.String(), EventsReferenced: refs}, nil
}

func (s *LineService) Events(ctx context.Context, limit int) ([]domain.LineEvent, error) {
	return s.events.Recent(ctx, limit)
}

func (s *LineService) Stats(ctx context.Context) domain.ShiftStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *LineService) foldStatsLocked(action domain.Action, confidence float64) {
	st := &s.stats
	n := st.TotalInspected + 1
	switch action {
	case domain.ActionReject:
		st.Rejected++
	case domain.ActionManualReview:
		st.ManualReviews++
	}
	st.AvgConfidence += (confidence - st.AvgConfidence) / float64(n)
	st.TotalInspected = n
	st.Passed = n - st.Rejected
	st.PassRate = float64(st.Passed) / float64(n)
}

func (s *LineService) record(ctx context.Context, typ domain.LineEventType, agent, source string, data map[string]interface{}) {
	ev := domain.LineEvent{
		EventID:        uuid.NewString(),
		Timestamp:      s.now(),
		EventType:      typ,
		Agent:          agent,
		Data:           data,
		SourceDocument: source,
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.logger.Warnw("failed to record event",
			"event_type", typ,
			"error", err,
		)
	}
}

func (s *LineService) broadcast(ctx context.Context, kind domain.EventKind, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, kind, data); err != nil {
		s.logger.Warnw("broadcast failed",
			"kind", kind,
			"error", err,
		)
	}
}

func floorMove(animation domain.Animation, target, partID, color string) map[string]interface{} {
	m := map[string]interface{}{
		"animation": animation,
		"part_id":   partID,
		"status":    "OK",
	}
	if target != "" {
		m["target"] = target
	}
	if color != "" {
		m["part_color"] = color
	}
	return m
}
