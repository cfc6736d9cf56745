package stream

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"floorview/internal/core/domain"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type inspectionWire struct {
	PartID     string   `json:"part_id"`
	TargetBin  string   `json:"target_bin"`
	Action     string   `json:"action"`
	RuleID     string   `json:"rule_id"`
	Confidence *float64 `json:"confidence"`
	Color      string   `json:"color"`
	ColorHex   string   `json:"color_hex"`

	RequiresOperator bool `json:"requires_operator"`
	DefectDetected   bool `json:"defect_detected"`

	Classification *struct {
		Color      string   `json:"color"`
		ColorHex   string   `json:"color_hex"`
		Confidence *float64 `json:"confidence"`
	} `json:"classification"`

	DefectInspection *struct {
		DefectDetected bool `json:"defect_detected"`
	} `json:"defect_inspection"`

	Decision *struct {
		TargetBin        string   `json:"target_bin"`
		Action           string   `json:"action"`
		RuleID           string   `json:"rule_id"`
		RequiresOperator bool     `json:"requires_operator"`
		Confidence       *float64 `json:"confidence"`
	} `json:"decision"`
}

type policyWire struct {
	PolicyID string              `json:"policy_id"`
	Status   string              `json:"status"`
	Action   string              `json:"action"`
	Policy   jsoniter.RawMessage `json:"policy"`
}

type factoryFloorWire struct {
	Animation string `json:"animation"`
	Target    string `json:"target"`
	PartID    string `json:"part_id"`
	PartColor string `json:"part_color"`
	Color     string `json:"color"`
	Status    string `json:"status"`
}

// Decode narrows one wire frame into a typed event. Frames without a type,
// or whose data does not match the shape of their kind, are rejected with
// domain.ErrMalformedEvent. Kinds the dashboard does not handle are returned
// with a RawPayload.
func Decode(frame []byte, receivedAt time.Time) (domain.Event, error) {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return domain.Event{}, fmt.Errorf("%w: missing type", domain.ErrMalformedEvent)
	}

	ev := domain.Event{
		Kind:      env.Type,
		Timestamp: parseTimestamp(env.Timestamp, receivedAt),
	}

	data := env.Data
	if isNull(data) {
		data = []byte("{}")
	}

	var err error
	switch env.Type {
	case domain.KindInspection:
		ev.Payload, err = decodeInspection(data)
	case domain.KindPolicyUpdate:
		ev.Payload, err = decodePolicyUpdate(data)
	case domain.KindFactoryFloor:
		ev.Payload, err = decodeFactoryFloor(data)
	default:
		ev.Payload = &domain.RawPayload{EventKind: env.Type, Data: append([]byte(nil), env.Data...)}
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, env.Type, err)
	}
	return ev, nil
}

func decodeInspection(data []byte) (*domain.InspectionPayload, error) {
	var w inspectionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	p := &domain.InspectionPayload{
		PartID:           w.PartID,
		TargetBin:        w.TargetBin,
		Action:           domain.Action(strings.ToUpper(w.Action)),
		RuleID:           w.RuleID,
		DefectDetected:   w.DefectDetected,
		RequiresOperator: w.RequiresOperator,
	}

	colorName, colorHex := w.Color, w.ColorHex
	var conf *float64
	if c := w.Classification; c != nil {
		if c.Color != "" {
			colorName = c.Color
		}
		if c.ColorHex != "" {
			colorHex = c.ColorHex
		}
		conf = c.Confidence
	}
	if d := w.Decision; d != nil {
		if d.TargetBin != "" {
			p.TargetBin = d.TargetBin
		}
		if d.Action != "" {
			p.Action = domain.Action(strings.ToUpper(d.Action))
		}
		if d.RuleID != "" {
			p.RuleID = d.RuleID
		}
		p.RequiresOperator = p.RequiresOperator || d.RequiresOperator
		if conf == nil {
			conf = d.Confidence
		}
	}
	if conf == nil {
		conf = w.Confidence
	}
	if w.DefectInspection != nil {
		p.DefectDetected = p.DefectDetected || w.DefectInspection.DefectDetected
	}

	if conf != nil {
		p.Confidence = clampUnit(*conf)
	}
	p.ColorName = colorName
	p.Color = domain.ColorOr(colorHex, domain.ColorOr(colorName, domain.NeutralColor))
	return p, nil
}

// policy_update data is either {"policy": {...}, "action": "..."} or a bare
// policy object.
func decodePolicyUpdate(data []byte) (*domain.PolicyUpdatePayload, error) {
	var w policyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	p := &domain.PolicyUpdatePayload{
		PolicyID: w.PolicyID,
		Status:   w.Status,
		Action:   w.Action,
		Document: append([]byte(nil), data...),
	}
	if !isNull(w.Policy) {
		var inner policyWire
		if err := json.Unmarshal(w.Policy, &inner); err != nil {
			return nil, err
		}
		if inner.PolicyID != "" {
			p.PolicyID = inner.PolicyID
		}
		if inner.Status != "" {
			p.Status = inner.Status
		}
		p.Document = append([]byte(nil), w.Policy...)
	}
	return p, nil
}

func decodeFactoryFloor(data []byte) (*domain.FactoryFloorPayload, error) {
	var w factoryFloorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	color := w.PartColor
	if color == "" {
		color = w.Color
	}
	return &domain.FactoryFloorPayload{
		Animation: domain.Animation(strings.ToUpper(w.Animation)),
		Target:    w.Target,
		PartID:    w.PartID,
		Color:     domain.ColorOr(color, domain.NeutralColor),
		Status:    w.Status,
	}, nil
}

// Encode builds a wire frame. It is used by the keepalive and by linesim.
func Encode(kind domain.EventKind, data interface{}, ts time.Time) ([]byte, error) {
	env := domain.Envelope{Type: kind}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	if !ts.IsZero() {
		env.Timestamp = ts.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(env)
}

func parseTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
