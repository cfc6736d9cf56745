package services

import (
	"floorview/internal/core/domain"
)

// Apply folds one event into the dashboard. It is pure: prev is left
// untouched and unknown kinds return prev unchanged.
func Apply(prev domain.Dashboard, ev domain.Event) domain.Dashboard {
	switch p := ev.Payload.(type) {
	case *domain.InspectionPayload:
		return applyInspection(prev, p, ev)
	case *domain.PolicyUpdatePayload:
		return applyPolicyUpdate(prev, p, ev)
	default:
		return prev
	}
}

func applyInspection(prev domain.Dashboard, p *domain.InspectionPayload, ev domain.Event) domain.Dashboard {
	next := prev

	matched := false
	next.Bins = make([]domain.BinState, len(prev.Bins))
	copy(next.Bins, prev.Bins)
	for i := range next.Bins {
		if next.Bins[i].ID == p.TargetBin {
			next.Bins[i].Count++
			matched = true
			break
		}
	}
	if !matched {
		next.Unmatched++
	}

	next.Stats = foldStats(prev.Stats, p.Action, p.Confidence)
	next.Log = prependCapped(prev.Log, domain.LogEntry{
		PartID:     p.PartID,
		TargetBin:  p.TargetBin,
		Action:     p.Action,
		Confidence: p.Confidence,
		Color:      p.Color,
		Timestamp:  ev.Timestamp,
	}, domain.RecentEventsCap)
	return next
}

// foldStats updates the running statistics with an incremental mean.
func foldStats(prev domain.Stats, action domain.Action, confidence float64) domain.Stats {
	s := prev
	s.Total = prev.Total + 1

	switch action {
	case domain.ActionReject:
		s.Rejected++
	case domain.ActionManualReview:
		s.ManualReviews++
	}

	s.Passed = s.Total - s.Rejected
	s.PassRate = float64(s.Passed) / float64(s.Total)
	s.AvgConfidence = (prev.AvgConfidence*float64(prev.Total) + confidence) / float64(s.Total)
	return s
}

func prependCapped(log []domain.LogEntry, e domain.LogEntry, limit int) []domain.LogEntry {
	n := len(log) + 1
	if n > limit {
		n = limit
	}
	out := make([]domain.LogEntry, n)
	out[0] = e
	copy(out[1:], log)
	return out
}

func applyPolicyUpdate(prev domain.Dashboard, p *domain.PolicyUpdatePayload, ev domain.Event) domain.Dashboard {
	next := prev
	next.Policy = &domain.PolicyRef{
		PolicyID:   p.PolicyID,
		Status:     p.Status,
		Action:     p.Action,
		Document:   p.Document,
		ReceivedAt: ev.Timestamp,
	}
	return next
}

// TriggerFor extracts the routing trigger carried by a factory_floor event.
// Only animations that move a part to a destination produce one; a failed
// placement is still animated.
func TriggerFor(ev domain.Event) (domain.Trigger, bool) {
	p, ok := ev.Payload.(*domain.FactoryFloorPayload)
	if !ok || !p.Animation.Routes() {
		return domain.Trigger{}, false
	}
	return domain.Trigger{Target: p.Target, Color: p.Color, PartID: p.PartID}, true
}
