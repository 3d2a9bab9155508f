package workflow

import (
	"fmt"
	"sort"
)

// StateTransition declares one permitted edge together with its preconditions
type StateTransition struct {
	From               State
	To                 State
	RequiredConditions []Condition
	AllowedRoles       []Role
}

// AllowsRole reports whether role appears in AllowedRoles
func (t StateTransition) AllowsRole(role Role) bool {
	for _, r := range t.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

type transitionKey struct {
	from State
	to   State
}

// Catalog is the immutable, lookup-indexed set of permitted transitions
type Catalog struct {
	entries map[transitionKey]StateTransition
	order   []transitionKey
}

// NewCatalog indexes transitions by (from, to).
// Duplicate pairs, unknown states and edges leaving a terminal state are rejected.
func NewCatalog(transitions []StateTransition) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[transitionKey]StateTransition, len(transitions)),
		order:   make([]transitionKey, 0, len(transitions)),
	}

	for _, t := range transitions {
		if !t.From.IsValid() || !t.To.IsValid() {
			return nil, fmt.Errorf("%w: unknown state in %s -> %s", ErrCatalogConfig, t.From, t.To)
		}
		if t.From.IsTerminal() {
			return nil, fmt.Errorf("%w: transition out of terminal state %s", ErrCatalogConfig, t.From)
		}
		if t.From == t.To {
			return nil, fmt.Errorf("%w: self transition on %s", ErrCatalogConfig, t.From)
		}
		if len(t.AllowedRoles) == 0 {
			return nil, fmt.Errorf("%w: %s -> %s allows no role", ErrCatalogConfig, t.From, t.To)
		}

		key := transitionKey{from: t.From, to: t.To}
		if _, exists := c.entries[key]; exists {
			return nil, fmt.Errorf("%w: duplicate transition %s -> %s", ErrCatalogConfig, t.From, t.To)
		}

		c.entries[key] = StateTransition{
			From:               t.From,
			To:                 t.To,
			RequiredConditions: append([]Condition(nil), t.RequiredConditions...),
			AllowedRoles:       append([]Role(nil), t.AllowedRoles...),
		}
		c.order = append(c.order, key)
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on a malformed table
func MustCatalog(transitions []StateTransition) *Catalog {
	c, err := NewCatalog(transitions)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the transition for (from, to) if the catalog declares one
func (c *Catalog) Lookup(from, to State) (StateTransition, bool) {
	t, ok := c.entries[transitionKey{from: from, to: to}]
	return t, ok
}

// ReachableFrom returns the targets reachable in one step from state, in pipeline order
func (c *Catalog) ReachableFrom(state State) []State {
	out := make([]State, 0, 4)
	for _, key := range c.order {
		if key.from == state {
			out = append(out, key.to)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return stateRank[out[i]] < stateRank[out[j]]
	})
	return out
}

// Transitions returns a copy of every entry in declaration order
func (c *Catalog) Transitions() []StateTransition {
	out := make([]StateTransition, 0, len(c.order))
	for _, key := range c.order {
		t := c.entries[key]
		out = append(out, StateTransition{
			From:               t.From,
			To:                 t.To,
			RequiredConditions: append([]Condition(nil), t.RequiredConditions...),
			AllowedRoles:       append([]Role(nil), t.AllowedRoles...),
		})
	}
	return out
}

// Len returns the number of declared transitions
func (c *Catalog) Len() int {
	return len(c.order)
}
