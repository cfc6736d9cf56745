package main

import (
	"context"
	"testing"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/core/services"
	"floorview/internal/infrastructure/repositories/memory"
	"floorview/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, domain.EventKind, interface{}) error { return nil }
func (nopBroadcaster) ClientCount() int { return 0 }

type nopLineMetrics struct{}

func (nopLineMetrics) RecordInspection(domain.Action) {}

func TestSeedPolicy_ApprovesCompiledPolicy(t *testing.T) {
	line := services.NewLineService(
		memory.NewMemoryPolicyRepository(),
		memory.NewMemoryDocumentRepository(),
		memory.NewMemoryEventRepository(10),
		nopBroadcaster{}, nopLineMetrics{},
		services.LineOptions{ConfidenceThreshold: 0.7, ConfidenceLow: 0.3},
		nil,
	)
	ctx := context.Background()

	require.NoError(t, seedPolicy(ctx, line, zap.NewNop().Sugar()))

	active, err := line.ActivePolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyApproved, active.Status)
	assert.Equal(t, "linesim", active.ApprovedBy)

	docs, err := line.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"Sorting Criteria", "Quality Rules"}, docs[0].Sections)
	assert.Equal(t, 2, docs[0].TablesFound)

	_, err = line.Inspect(ctx, domain.InspectRequest{UseCamera: true})
	assert.NoError(t, err)
}

func TestSetEmitInterval(t *testing.T) {
	cfg := config.DefaultConfig()

	require.NoError(t, setEmitInterval(cfg, "250ms"))
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.EmitInterval)

	require.NoError(t, setEmitInterval(cfg, "0"))
	assert.Zero(t, cfg.Simulator.EmitInterval)

	assert.Error(t, setEmitInterval(cfg, "soon"))
	assert.Error(t, setEmitInterval(cfg, "-1s"))
}

func TestWsURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/ws", wsURL(":8000"))
	assert.Equal(t, "ws://10.0.0.5:9000/ws", wsURL("10.0.0.5:9000"))
}
