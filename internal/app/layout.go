package app

import (
	"floorview/internal/core/domain"
	"floorview/pkg/config"
)

// LayoutFromConfig builds the scene geometry. An empty bin list selects the
// five-bin default cell.
func LayoutFromConfig(cfg *config.Config) (*domain.Layout, error) {
	lc := cfg.Layout
	source := domain.Point{X: lc.Source[0], Y: lc.Source[1]}
	inspection := domain.Point{X: lc.Inspection[0], Y: lc.Inspection[1]}

	if len(lc.Bins) == 0 {
		return domain.NewLayout(source, inspection, domain.DefaultBins(), domain.ReviewBin)
	}

	bins := make([]domain.BinSpec, len(lc.Bins))
	for i, b := range lc.Bins {
		bins[i] = domain.BinSpec{
			ID:         b.ID,
			Label:      b.Label,
			Position:   domain.Point{X: b.X, Y: b.Y},
			Color:      domain.ColorOr(b.Color, domain.NeutralColor),
			Emphasized: b.Emphasized,
		}
	}
	return domain.NewLayout(source, inspection, bins, lc.Fallback)
}
