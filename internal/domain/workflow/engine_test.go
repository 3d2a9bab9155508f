package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return NewEngine(c)
}

func allHold(conds []Condition) Conditions {
	out := Conditions{}
	for _, c := range conds {
		out[c] = true
	}
	return out
}

func TestEngine_EveryCatalogEntry(t *testing.T) {
	engine := newTestEngine(t)

	for _, tr := range engine.Catalog().Transitions() {
		tr := tr
		t.Run(string(tr.From)+"->"+string(tr.To), func(t *testing.T) {
			full := allHold(tr.RequiredConditions)

			for _, role := range tr.AllowedRoles {
				ok, err := engine.CanTransition(tr.From, tr.To, full, role)
				require.NoError(t, err)
				assert.True(t, ok)
			}

			for _, missing := range tr.RequiredConditions {
				conds := full.With(missing, false)
				ok, err := engine.CanTransition(tr.From, tr.To, conds, tr.AllowedRoles[0])
				assert.False(t, ok)
				require.ErrorIs(t, err, ErrConditionNotMet)

				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, missing, te.Condition)
				assert.Contains(t, te.Reason(), string(missing))
			}

			ok, err := engine.CanTransition(tr.From, tr.To, full, RoleAuditor)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrRolePermissionDenied)
		})
	}
}

func TestEngine_UndefinedPairsAreRefusedForEveryRole(t *testing.T) {
	engine := newTestEngine(t)
	roles := []Role{RoleSystem, RoleAPIClient, RoleAgent, RoleSupervisor, RoleAdmin, RoleAuditor}
	everything := allHold([]Condition{
		CondHasRequiredDocuments, CondHasCustomerData, CondDocumentsUploaded,
		CondDocumentsVerified, CondApplicationExpired, CondHighConfidenceScore,
		CondMediumConfidenceScore, CondLowConfidenceScore, CondFailedVerification,
		CondAllChecksPassed, CondAgentApproved, CondAgentRejected,
	})

	checked := 0
	for _, from := range AllStates() {
		for _, to := range AllStates() {
			if _, defined := engine.Catalog().Lookup(from, to); defined {
				continue
			}
			for _, role := range roles {
				ok, err := engine.CanTransition(from, to, everything, role)
				assert.False(t, ok, "%s -> %s as %s", from, to, role)
				assert.ErrorIs(t, err, ErrNoTransitionDefined, "%s -> %s as %s", from, to, role)
			}
			checked++
		}
	}

	n := len(AllStates())
	assert.Equal(t, n*n-len(engine.Catalog().Transitions()), checked)
}

func TestEngine_CheckOrder(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("undefined edge beats role and conditions", func(t *testing.T) {
		ok, err := engine.CanTransition(StateDraft, StateApproved, nil, RoleAuditor)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrNoTransitionDefined)
	})

	t.Run("role checked before conditions", func(t *testing.T) {
		ok, err := engine.CanTransition(StateManualReview, StateApproved, Conditions{}, RoleSystem)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrRolePermissionDenied)
	})

	t.Run("first missing condition in declaration order", func(t *testing.T) {
		_, err := engine.CanTransition(StateFaceVerification, StateApproved, Conditions{}, RoleSystem)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, CondHighConfidenceScore, te.Condition)
	})
}

func TestEngine_Scenarios(t *testing.T) {
	engine := newTestEngine(t)

	ok, err := engine.CanTransition(StateDraft, StateSubmitted,
		Conditions{CondHasRequiredDocuments: true, CondHasCustomerData: true}, RoleAPIClient)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = engine.CanTransition(StateDraft, StateSubmitted,
		Conditions{CondHasRequiredDocuments: false, CondHasCustomerData: true}, RoleAPIClient)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrConditionNotMet)
	assert.Contains(t, err.Error(), "has_required_documents")

	ok, err = engine.CanTransition(StateManualReview, StateApproved,
		Conditions{CondAgentApproved: true}, RoleSupervisor)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = engine.CanTransition(StateFaceVerification, StateApproved,
		Conditions{CondHighConfidenceScore: true, CondAllChecksPassed: true}, RoleAgent)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRolePermissionDenied)
}

func TestEngine_EmptyConditionSetPassesOnRole(t *testing.T) {
	engine := NewEngine(MustCatalog([]StateTransition{
		{From: StateSubmitted, To: StateDocumentVerification, AllowedRoles: systemOnly},
	}))

	ok, err := engine.CanTransition(StateSubmitted, StateDocumentVerification, nil, RoleSystem)
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestEngine_TerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	engine := newTestEngine(t)

	for _, from := range []State{StateApproved, StateRejected, StateExpired} {
		assert.Empty(t, engine.NextStates(from))
		for _, to := range AllStates() {
			ok, err := engine.CanTransition(from, to, allHold([]Condition{CondAgentApproved}), RoleAdmin)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrNoTransitionDefined)
		}
	}
}

func TestEngine_IsPure(t *testing.T) {
	engine := newTestEngine(t)
	conds := Conditions{CondDocumentsUploaded: true}

	for i := 0; i < 3; i++ {
		ok, err := engine.CanTransition(StateSubmitted, StateDocumentVerification, conds, RoleSystem)
		assert.True(t, ok)
		assert.NoError(t, err)
	}
	assert.Len(t, conds, 1)
}

func TestEngine_NextStatesFromManualReview(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, []State{StateApproved, StateRejected}, engine.NextStates(StateManualReview))
}
