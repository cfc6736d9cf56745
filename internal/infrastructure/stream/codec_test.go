package stream

import (
	"errors"
	"testing"
	"time"

	"floorview/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func TestDecode_InspectionResult(t *testing.T) {
	frame := `{
		"type": "inspection",
		"timestamp": "2026-03-04T09:59:58.250000",
		"data": {
			"part_id": "part-0007",
			"classification": {"color": "red", "color_hex": "#ff0000", "size_mm": 55, "confidence": 0.91},
			"defect_inspection": {"defect_detected": false},
			"decision": {"target_bin": "BIN_A", "action": "sort", "rule_id": "RULE_003", "confidence": 0.5}
		}
	}`

	ev, err := Decode([]byte(frame), received)
	require.NoError(t, err)

	assert.Equal(t, domain.KindInspection, ev.Kind)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 59, 58, 250000000, time.UTC), ev.Timestamp)

	p, ok := ev.Payload.(*domain.InspectionPayload)
	require.True(t, ok)
	assert.Equal(t, "part-0007", p.PartID)
	assert.Equal(t, "BIN_A", p.TargetBin)
	assert.Equal(t, domain.ActionSort, p.Action)
	assert.Equal(t, "RULE_003", p.RuleID)
	assert.InDelta(t, 0.91, p.Confidence, 1e-9, "classification confidence wins")
	assert.Equal(t, domain.Color{R: 0xff}, p.Color)
	assert.Equal(t, "red", p.ColorName)
}

func TestDecode_InspectionFlatFallbacks(t *testing.T) {
	frame := `{"type":"inspection","data":{"part_id":"p1","target_bin":"BIN_B","action":"REJECT","confidence":1.7}}`

	ev, err := Decode([]byte(frame), received)
	require.NoError(t, err)

	p := ev.Payload.(*domain.InspectionPayload)
	assert.Equal(t, "BIN_B", p.TargetBin)
	assert.Equal(t, domain.ActionReject, p.Action)
	assert.Equal(t, 1.0, p.Confidence, "confidence is clamped")
	assert.Equal(t, domain.NeutralColor, p.Color, "missing color falls back to neutral")
	assert.Equal(t, received, ev.Timestamp, "missing timestamp uses receive time")
}

func TestDecode_InspectionDecisionConfidence(t *testing.T) {
	frame := `{"type":"inspection","data":{"decision":{"target_bin":"REVIEW_BIN","confidence":0.4,"requires_operator":true},"confidence":0.9}}`

	ev, err := Decode([]byte(frame), received)
	require.NoError(t, err)

	p := ev.Payload.(*domain.InspectionPayload)
	assert.InDelta(t, 0.4, p.Confidence, 1e-9)
	assert.True(t, p.RequiresOperator)
}

func TestDecode_PolicyUpdate(t *testing.T) {
	frame := `{"type":"policy_update","data":{"policy":{"policy_id":"pol-1","status":"APPROVED","decision_rules":[]},"action":"approved"}}`

	ev, err := Decode([]byte(frame), received)
	require.NoError(t, err)

	p, ok := ev.Payload.(*domain.PolicyUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, "pol-1", p.PolicyID)
	assert.Equal(t, "APPROVED", p.Status)
	assert.Equal(t, "approved", p.Action)
	assert.JSONEq(t, `{"policy_id":"pol-1","status":"APPROVED","decision_rules":[]}`, string(p.Document))
}

func TestDecode_FactoryFloor(t *testing.T) {
	frame := `{"type":"factory_floor","data":{"animation":"place","target":"BIN_C","part_id":"p2","part_color":"green","status":"OK"}}`

	ev, err := Decode([]byte(frame), received)
	require.NoError(t, err)

	p, ok := ev.Payload.(*domain.FactoryFloorPayload)
	require.True(t, ok)
	assert.Equal(t, domain.AnimationPlace, p.Animation)
	assert.Equal(t, "BIN_C", p.Target)
	assert.Equal(t, domain.ColorOr("green", domain.NeutralColor), p.Color)
}

func TestDecode_UnhandledKindIsForwarded(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"pong"}`), received)
	require.NoError(t, err)

	raw, ok := ev.Payload.(*domain.RawPayload)
	require.True(t, ok)
	assert.Equal(t, domain.EventKind("pong"), raw.Kind())

	ev, err = Decode([]byte(`{"type":"status","data":{"message":"Document parsed: a.pdf"}}`), received)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Document parsed: a.pdf"}`, string(ev.Payload.(*domain.RawPayload).Data))
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":             `{"type":`,
		"missing type":         `{"data":{}}`,
		"inspection not obj":   `{"type":"inspection","data":[1,2]}`,
		"factory floor string": `{"type":"factory_floor","data":"BIN_A"}`,
		"bad confidence":       `{"type":"inspection","data":{"confidence":"high"}}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame), received)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedEvent))
		})
	}
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	frame, err := Encode(domain.KindFactoryFloor, map[string]string{"animation": "PLACE", "target": "BIN_A"}, received)
	require.NoError(t, err)

	ev, err := Decode(frame, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, received, ev.Timestamp)
	assert.Equal(t, "BIN_A", ev.Payload.(*domain.FactoryFloorPayload).Target)
}
