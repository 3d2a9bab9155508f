package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_Builds(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, 12, c.Len())
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]StateTransition{
		{From: StateDraft, To: StateSubmitted, AllowedRoles: []Role{RoleAgent}},
		{From: StateDraft, To: StateSubmitted, AllowedRoles: []Role{RoleAdmin}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogConfig)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewCatalog_RejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name string
		t    StateTransition
	}{
		{"unknown from", StateTransition{From: "LIMBO", To: StateSubmitted, AllowedRoles: systemOnly}},
		{"unknown to", StateTransition{From: StateDraft, To: "LIMBO", AllowedRoles: systemOnly}},
		{"out of terminal", StateTransition{From: StateApproved, To: StateManualReview, AllowedRoles: systemOnly}},
		{"self loop", StateTransition{From: StateDraft, To: StateDraft, AllowedRoles: systemOnly}},
		{"no roles", StateTransition{From: StateDraft, To: StateSubmitted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog([]StateTransition{tt.t})
			assert.ErrorIs(t, err, ErrCatalogConfig)
		})
	}
}

func TestMustCatalog_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustCatalog([]StateTransition{{From: StateExpired, To: StateDraft, AllowedRoles: systemOnly}})
	})
}

func TestCatalog_ReachableFrom(t *testing.T) {
	c := MustCatalog(DefaultTransitions())

	assert.Equal(t, []State{StateSubmitted, StateExpired}, c.ReachableFrom(StateDraft))
	assert.Equal(t,
		[]State{StateFaceVerification, StateManualReview, StateExpired},
		c.ReachableFrom(StateDocumentVerification))
	assert.Equal(t,
		[]State{StateManualReview, StateApproved, StateRejected},
		c.ReachableFrom(StateFaceVerification))
	assert.Empty(t, c.ReachableFrom(StateApproved))
	assert.Empty(t, c.ReachableFrom(StateRejected))
	assert.Empty(t, c.ReachableFrom(StateExpired))
}

func TestCatalog_TransitionsIsACopy(t *testing.T) {
	c := MustCatalog(DefaultTransitions())

	ts := c.Transitions()
	ts[0].AllowedRoles[0] = RoleAuditor
	ts[0].RequiredConditions = nil

	again, ok := c.Lookup(ts[0].From, ts[0].To)
	require.True(t, ok)
	assert.NotContains(t, again.AllowedRoles, RoleAuditor)
	assert.NotEmpty(t, again.RequiredConditions)
}

func TestCatalog_NoEdgesLeaveTerminalStates(t *testing.T) {
	c := MustCatalog(DefaultTransitions())
	for _, tr := range c.Transitions() {
		assert.False(t, tr.From.IsTerminal(), "%s -> %s", tr.From, tr.To)
	}
}
