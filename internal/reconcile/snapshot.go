package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/jask/vareditor/internal/variables"
)

type scopeState struct {
	// stale is set when the rows of the scope could not be built from
	// this state.
	stale   bool
	encoded string
	values  map[string]string
}

// Snapshot is the serialized state of both scopes as last observed or
// written. The zero Snapshot has never been captured and differs
// structurally from every real state.
type Snapshot struct {
	taken  bool
	scopes [2]scopeState
}

// Capture serializes the current contents of both collections. Encoding
// goes through a plain map so key order never counts as a change.
func Capture(local, global *variables.Collection) (Snapshot, error) {
	var s Snapshot
	for i, c := range []*variables.Collection{local, global} {
		values := c.Map()
		raw, err := json.Marshal(values)
		if err != nil {
			return Snapshot{}, fmt.Errorf("encode %s snapshot: %w", variables.Scopes[i], err)
		}
		s.scopes[i] = scopeState{encoded: string(raw), values: values}
	}
	s.taken = true
	return s, nil
}

// Taken reports whether the snapshot holds captured state.
func (s Snapshot) Taken() bool { return s.taken }

// Stale reports whether scope is marked for a rebuild on the next Diff.
func (s Snapshot) Stale(scope variables.Scope) bool { return s.scopes[scope].stale }

func (s *Snapshot) invalidate(scope variables.Scope) { s.scopes[scope].stale = true }

// Values returns the captured values of scope. The map must not be modified.
func (s Snapshot) Values(scope variables.Scope) map[string]string {
	return s.scopes[scope].values
}

// Encoded returns the canonical JSON captured for scope.
func (s Snapshot) Encoded(scope variables.Scope) string {
	return s.scopes[scope].encoded
}

// ScopeChange describes how one scope moved between two snapshots.
type ScopeChange struct {
	Scope variables.Scope
	// Structural is set when keys were added or removed.
	Structural bool
	// Values is the scope's full current contents.
	Values map[string]string
}

// Diff lists the scopes whose state differs from prev to next, in scope
// order. Unchanged scopes are omitted. A stale scope in prev is always
// reported as structural.
func Diff(prev, next Snapshot) []ScopeChange {
	var out []ScopeChange
	for _, scope := range variables.Scopes {
		p, n := prev.scopes[scope], next.scopes[scope]
		if prev.taken && !p.stale && p.encoded == n.encoded {
			continue
		}
		out = append(out, ScopeChange{
			Scope:      scope,
			Structural: !prev.taken || p.stale || !sameKeys(p.values, n.values),
			Values:     n.values,
		})
	}
	return out
}

func sameKeys(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
