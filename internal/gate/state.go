// Package gate tracks a deal's position in the BOE gate: the state derived
// from its latest run, the computed and effective statuses, manual overrides
// and the audit events each change produces.
package gate

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// Override validation errors.
var (
	ErrInvalidOverride = eris.New("status must be one of ADVANCE, REVIEW, KILL, APPROVED, BLOCKED, CLEAR")
	ErrCommentRequired = eris.New("comment is required when setting an override")
)

// StatusNoRun is reported for deals that have never been evaluated.
const StatusNoRun = "NO_RUN"

// ComputeState derives the gate state from the latest run.
func ComputeState(latest *model.Run) model.GateState {
	switch {
	case latest == nil:
		return model.GateStateNoRun
	case latest.Advance:
		return model.GateStateAdvance
	default:
		return model.GateStateKill
	}
}

// MapDecision converts the engine's classification into a deal status.
func MapDecision(d boe.Decision) model.DealStatus {
	switch boe.StatusFor(d.HardVetoOK, d.Advance) {
	case boe.StatusBlocked:
		return model.DealStatusBlocked
	case boe.StatusAdvance:
		return model.DealStatusAdvance
	default:
		return model.DealStatusNeedsWork
	}
}

// TransitionState points the deal at latest and moves its gate state. An
// event is returned only when the state changes.
func TransitionState(deal *model.Deal, latest *model.Run, actor string, now time.Time) *model.GateEvent {
	previous := deal.CurrentGateState
	if previous == "" {
		previous = model.GateStateNoRun
	}
	next := ComputeState(latest)

	deal.CurrentGateState = next
	if latest != nil {
		id := latest.ID
		deal.LatestRunID = &id
	} else {
		deal.LatestRunID = nil
	}

	if previous == next {
		return nil
	}
	return &model.GateEvent{
		DealID:     deal.ID,
		EventType:  model.EventGateTransition,
		FromStatus: str(string(previous)),
		ToStatus:   str(string(next)),
		Source:     model.SourceBOE,
		Metadata:   map[string]any{"actor_user_id": actor},
		CreatedAt:  now,
	}
}

// ApplyComputed records a newly computed status. The effective status follows
// it unless an override is in place. Nothing changes, and no event is
// returned, when computed equals the current computed status.
func ApplyComputed(deal *model.Deal, computed model.DealStatus, reason string, meta map[string]any, now time.Time) (*model.GateEvent, bool) {
	previous := deal.GateStatusComputed
	if previous == computed {
		return nil, false
	}

	deal.GateStatusComputed = computed
	if !deal.HasOverride() {
		deal.GateStatus = computed
	}
	deal.GateUpdatedAt = &now

	return &model.GateEvent{
		DealID:     deal.ID,
		EventType:  model.EventComputedTransition,
		FromStatus: str(string(previous)),
		ToStatus:   str(string(computed)),
		Source:     model.SourceComputed,
		Reason:     optional(reason),
		Metadata:   meta,
		CreatedAt:  now,
	}, true
}

// SetOverride sets the manual override to status, or clears it when status
// is nil. The effective status becomes the override, or falls back to the
// computed status on clear. Clearing a deal without an override, or setting
// the override it already has with the same reason, is a no-op.
func SetOverride(deal *model.Deal, status *model.DealStatus, reason *string, by string, now time.Time) (*model.GateEvent, bool) {
	from := deal.GateStatus

	if status == nil {
		if !deal.HasOverride() {
			return nil, false
		}
		deal.GateOverrideStatus = nil
		deal.GateOverrideReason = nil
		deal.GateOverrideBy = nil
		deal.GateOverrideAt = nil
		deal.GateStatus = deal.GateStatusComputed
		deal.GateUpdatedAt = &now

		return &model.GateEvent{
			DealID:     deal.ID,
			EventType:  model.EventOverrideCleared,
			FromStatus: str(string(from)),
			ToStatus:   str(string(deal.GateStatus)),
			Source:     model.SourceOverride,
			Metadata:   map[string]any{"override_by": by},
			CreatedAt:  now,
		}, true
	}

	if deal.HasOverride() && *deal.GateOverrideStatus == *status && equalStr(deal.GateOverrideReason, reason) {
		return nil, false
	}

	s := *status
	deal.GateOverrideStatus = &s
	deal.GateOverrideReason = reason
	deal.GateOverrideBy = &by
	deal.GateOverrideAt = &now
	deal.GateStatus = s
	deal.GateUpdatedAt = &now

	return &model.GateEvent{
		DealID:     deal.ID,
		EventType:  model.EventOverrideSet,
		FromStatus: str(string(from)),
		ToStatus:   str(string(s)),
		Source:     model.SourceOverride,
		Reason:     reason,
		Metadata:   map[string]any{"override_by": by, "computed_status": string(deal.GateStatusComputed)},
		CreatedAt:  now,
	}, true
}

// ParseOverrideStatus reads an override request. REVIEW and KILL are the
// older names for NEEDS_WORK and BLOCKED. CLEAR returns a nil status. A
// comment is required for anything but CLEAR.
func ParseOverrideStatus(raw, comment string) (*model.DealStatus, error) {
	var status model.DealStatus
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CLEAR":
		return nil, nil
	case "ADVANCE":
		status = model.DealStatusAdvance
	case "REVIEW", "NEEDS_WORK":
		status = model.DealStatusNeedsWork
	case "KILL", "BLOCKED":
		status = model.DealStatusBlocked
	case "APPROVED":
		status = model.DealStatusApproved
	default:
		return nil, ErrInvalidOverride
	}
	if strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}
	return &status, nil
}

func str(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
