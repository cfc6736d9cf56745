package services

import (
	"sync"

	"floorview/internal/core/domain"

	"go.uber.org/zap"
)

// DashboardService owns the current dashboard snapshot and replaces it on
// every fold.
type DashboardService struct {
	mu      sync.RWMutex
	current domain.Dashboard
	logger  *zap.SugaredLogger
}

func NewDashboardService(layout *domain.Layout, logger *zap.SugaredLogger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DashboardService{
		current: domain.NewDashboard(layout),
		logger:  logger,
	}
}

// Handle folds ev and reports the routing trigger it carries, if any.
func (s *DashboardService) Handle(ev domain.Event) (domain.Trigger, bool) {
	s.mu.Lock()
	s.current = Apply(s.current, ev)
	s.mu.Unlock()

	switch p := ev.Payload.(type) {
	case *domain.InspectionPayload:
		s.logger.Debugw("inspection folded",
			"part_id", p.PartID,
			"target_bin", p.TargetBin,
			"action", p.Action,
			"confidence", p.Confidence,
		)
	case *domain.PolicyUpdatePayload:
		s.logger.Infow("active policy replaced", "policy_id", p.PolicyID, "status", p.Status)
	}

	return TriggerFor(ev)
}

// Snapshot returns the current dashboard. Callers must treat it as read-only.
func (s *DashboardService) Snapshot() domain.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
