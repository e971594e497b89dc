package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/boe"
)

func TestDealStatusValues(t *testing.T) {
	assert.Equal(t, "BLOCKED", string(DealStatusBlocked))
	assert.Equal(t, "NEEDS_WORK", string(DealStatusNeedsWork))
	assert.Equal(t, "ADVANCE", string(DealStatusAdvance))
	assert.Equal(t, "APPROVED", string(DealStatusApproved))
}

func TestDeal_HasOverride(t *testing.T) {
	d := &Deal{}
	assert.False(t, d.HasOverride())

	s := DealStatusApproved
	d.GateOverrideStatus = &s
	assert.True(t, d.HasOverride())
}

func TestTestRow_RoundTrip(t *testing.T) {
	_, tests, _ := boe.Evaluate(boe.Input{})
	require.Len(t, tests, boe.TotalTests)

	run := &Run{}
	for _, o := range tests {
		run.Tests = append(run.Tests, NewTestRow(o))
	}
	assert.Equal(t, tests, run.Outcomes())
}

func TestTestRow_JSONKeys(t *testing.T) {
	row := TestRow{Key: "dscr", Class: boe.ClassSoft, Result: boe.ResultWarn}
	b, err := json.Marshal(row)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "dscr", m["test_key"])
	assert.Equal(t, "soft", m["test_class"])
	assert.Equal(t, "WARN", m["result"])
}

func TestGateEvent_Actor(t *testing.T) {
	e := &GateEvent{Metadata: map[string]any{"actor_user_id": "u1"}}
	assert.Equal(t, "u1", e.Actor())

	e.Metadata["override_by"] = "u2"
	assert.Equal(t, "u2", e.Actor())

	assert.Equal(t, "", (&GateEvent{}).Actor())
}
