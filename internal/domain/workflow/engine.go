package workflow

// Engine decides whether a transition is permitted. It holds no mutable state
// and has no side effects, so one instance is shared by every caller.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an engine over the given catalog
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the catalog backing the engine
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// CanTransition checks, in order, that the edge exists, that role may trigger it
// and that every required condition holds. The returned error is a *TransitionError.
func (e *Engine) CanTransition(from, to State, conds Conditions, role Role) (bool, error) {
	t, ok := e.catalog.Lookup(from, to)
	if !ok {
		return false, &TransitionError{Kind: ErrNoTransitionDefined, From: from, To: to, Role: role}
	}

	if !t.AllowsRole(role) {
		return false, &TransitionError{Kind: ErrRolePermissionDenied, From: from, To: to, Role: role}
	}

	for _, cond := range t.RequiredConditions {
		if !conds.Holds(cond) {
			return false, &TransitionError{Kind: ErrConditionNotMet, From: from, To: to, Role: role, Condition: cond}
		}
	}

	return true, nil
}

// NextStates returns the states reachable in one step from current
func (e *Engine) NextStates(current State) []State {
	return e.catalog.ReachableFrom(current)
}
