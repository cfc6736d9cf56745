package services

import (
	"context"
	"errors"
	"time"

	"floorview/internal/core/domain"

	"go.uber.org/zap"
)

// Inspector is the part of the line service the generator drives.
type Inspector interface {
	Inspect(ctx context.Context, req domain.InspectRequest) (*domain.InspectionResult, error)
}

// LineGenerator feeds parts into inspection at a fixed interval.
type LineGenerator struct {
	inspector Inspector
	interval  time.Duration
	logger    *zap.SugaredLogger
}

func NewLineGenerator(inspector Inspector, interval time.Duration, logger *zap.SugaredLogger) *LineGenerator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LineGenerator{inspector: inspector, interval: interval, logger: logger}
}

// Run inspects one part per tick until ctx is done. Ticks without an active
// policy are skipped.
func (g *LineGenerator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	idle := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := g.inspector.Inspect(ctx, domain.InspectRequest{UseCamera: true})
			switch {
			case errors.Is(err, domain.ErrNoActivePolicy):
				if !idle {
					g.logger.Infow("line idle, waiting for an approved policy")
				}
				idle = true
			case err != nil:
				g.logger.Warnw("inspection failed", "error", err)
			default:
				idle = false
			}
		}
	}
}
