package domain

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	KindInspection      EventKind = "inspection"
	KindDecision        EventKind = "decision"
	KindCommand         EventKind = "command"
	KindError           EventKind = "error"
	KindPolicyUpdate    EventKind = "policy_update"
	KindStatus          EventKind = "status"
	KindOperatorRequest EventKind = "operator_request"
	KindFactoryFloor    EventKind = "factory_floor"
)

// Known reports whether k is one of the envelope types the line backend emits.
func (k EventKind) Known() bool {
	switch k {
	case KindInspection, KindDecision, KindCommand, KindError,
		KindPolicyUpdate, KindStatus, KindOperatorRequest, KindFactoryFloor:
		return true
	}
	return false
}

type Action string

const (
	ActionSort         Action = "SORT"
	ActionReject       Action = "REJECT"
	ActionManualReview Action = "MANUAL_REVIEW"
	ActionPass         Action = "PASS"
)

type Animation string

const (
	AnimationPick    Animation = "PICK"
	AnimationPlace   Animation = "PLACE"
	AnimationMove    Animation = "MOVE"
	AnimationStop    Animation = "STOP"
	AnimationInspect Animation = "INSPECT"
)

// Routes reports whether the animation carries a part to a destination.
// An empty animation is treated as PLACE.
func (a Animation) Routes() bool {
	return a == "" || a == AnimationPlace || a == AnimationMove
}

// Event is a decoded stream message. It is never mutated after decoding.
type Event struct {
	Kind      EventKind
	Payload   Payload
	Timestamp time.Time
}

// Payload is the tagged variant carried by an Event. The concrete type is
// determined by the event kind.
type Payload interface {
	Kind() EventKind
}

type InspectionPayload struct {
	PartID           string
	TargetBin        string
	Action           Action
	RuleID           string
	Confidence       float64
	ColorName        string
	Color            Color
	DefectDetected   bool
	RequiresOperator bool
}

func (*InspectionPayload) Kind() EventKind { return KindInspection }

// PolicyUpdatePayload keeps the policy document verbatim; the dashboard only
// displays it and never interprets rules.
type PolicyUpdatePayload struct {
	PolicyID string
	Status   string
	Action   string
	Document json.RawMessage
}

func (*PolicyUpdatePayload) Kind() EventKind { return KindPolicyUpdate }

type FactoryFloorPayload struct {
	Animation Animation
	Target    string
	PartID    string
	Color     Color
	Status    string
}

func (*FactoryFloorPayload) Kind() EventKind { return KindFactoryFloor }

// RawPayload carries kinds that are forwarded but not handled by the dashboard.
type RawPayload struct {
	EventKind EventKind
	Data      json.RawMessage
}

func (p *RawPayload) Kind() EventKind { return p.EventKind }

// Envelope is the wire shape of every stream message.
type Envelope struct {
	Type      EventKind       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}
