package model

import "time"

// Gate event types.
const (
	EventComputedTransition = "COMPUTED_TRANSITION"
	EventOverrideSet        = "OVERRIDE_SET"
	EventOverrideCleared    = "OVERRIDE_CLEARED"
	EventGateTransition     = "GATE_TRANSITION"
	EventBOERunCreated      = "BOE_RUN_CREATED"
)

// Gate event sources.
const (
	SourceComputed = "computed"
	SourceOverride = "override"
	SourceBOE      = "boe"
)

// GateEvent is one entry in a deal's gate audit trail.
type GateEvent struct {
	ID         string         `json:"id"`
	DealID     string         `json:"deal_id"`
	EventType  string         `json:"event_type"`
	FromStatus *string        `json:"from_status"`
	ToStatus   *string        `json:"to_status"`
	Source     string         `json:"source"`
	Reason     *string        `json:"reason"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Actor returns the user recorded in the event metadata, if any.
func (e *GateEvent) Actor() string {
	for _, k := range []string{"override_by", "actor_user_id"} {
		if v, ok := e.Metadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
