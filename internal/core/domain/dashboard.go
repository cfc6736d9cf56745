package domain

import (
	"encoding/json"
	"time"
)

// RecentEventsCap bounds the dashboard's recent events log.
const RecentEventsCap = 200

type BinState struct {
	ID    string
	Label string
	Count int
	Color Color
}

type Stats struct {
	Total         int
	Passed        int
	Rejected      int
	ManualReviews int
	PassRate      float64
	AvgConfidence float64
}

// LogEntry is one inspection as shown in the recent events pane.
type LogEntry struct {
	PartID     string
	TargetBin  string
	Action     Action
	Confidence float64
	Color      Color
	Timestamp  time.Time
}

// PolicyRef is the last policy announced on the stream.
type PolicyRef struct {
	PolicyID   string
	Status     string
	Action     string
	Document   json.RawMessage
	ReceivedAt time.Time
}

// Trigger asks the animation engine to route one part to a destination.
type Trigger struct {
	Target string
	Color  Color
	PartID string
}

// ServiceStatus mirrors GET /status. Available is false when the last poll
// failed.
type ServiceStatus struct {
	Available     bool
	Status        string
	Camera        bool
	CameraBackend string
	WSClients     int
	PartCounter   int
	ActivePolicy  string
	CheckedAt     time.Time
}

// Dashboard is the folded view of the stream. A fold never mutates the
// previous value; every slice is replaced when it changes.
type Dashboard struct {
	// Bins follows the layout's display order.
	Bins []BinState
	// Unmatched counts inspections whose target bin is not in the layout.
	Unmatched int
	Stats     Stats
	// Log is newest first and holds at most RecentEventsCap entries.
	Log    []LogEntry
	Policy *PolicyRef
}

// NewDashboard returns an empty dashboard with one zeroed counter per bin.
func NewDashboard(layout *Layout) Dashboard {
	specs := layout.Bins()
	bins := make([]BinState, len(specs))
	for i, b := range specs {
		bins[i] = BinState{ID: b.ID, Label: b.Label, Color: b.Color}
	}
	return Dashboard{Bins: bins}
}
