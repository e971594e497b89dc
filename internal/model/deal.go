package model

import "time"

// DealStatus is the persisted gate status of a deal. BLOCKED, NEEDS_WORK and
// ADVANCE are computed from BOE runs; APPROVED is only reachable by override.
type DealStatus string

const (
	DealStatusBlocked   DealStatus = "BLOCKED"
	DealStatusNeedsWork DealStatus = "NEEDS_WORK"
	DealStatusAdvance   DealStatus = "ADVANCE"
	DealStatusApproved  DealStatus = "APPROVED"
)

// GateState tracks whether the latest run advanced the deal.
type GateState string

const (
	GateStateNoRun   GateState = "NO_RUN"
	GateStateKill    GateState = "KILL"
	GateStateAdvance GateState = "ADVANCE"
)

// Workspace groups deals.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Deal is a property under evaluation.
type Deal struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	AskingPrice *float64 `json:"asking_price,omitempty"`

	CurrentGateState GateState `json:"current_gate_state"`
	LatestRunID      *string   `json:"latest_boe_run_id,omitempty"`

	// GateStatus is the effective status: the override when one is set,
	// otherwise GateStatusComputed.
	GateStatus         DealStatus  `json:"gate_status"`
	GateStatusComputed DealStatus  `json:"gate_status_computed"`
	GateOverrideStatus *DealStatus `json:"gate_override_status,omitempty"`
	GateOverrideReason *string     `json:"gate_override_reason,omitempty"`
	GateOverrideBy     *string     `json:"gate_override_by,omitempty"`
	GateOverrideAt     *time.Time  `json:"gate_override_at,omitempty"`
	GateUpdatedAt      *time.Time  `json:"gate_updated_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// HasOverride reports whether a manual gate override is in effect.
func (d *Deal) HasOverride() bool { return d.GateOverrideStatus != nil }
