package variables

import (
	"sort"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Variable is one named string value.
type Variable struct {
	Key   string
	Value string
}

// Collection is the live mapping of one scope at one point in time. The host
// owns it and hands out the same pointer to every reader, so writes are
// visible immediately. Iteration follows insertion order.
type Collection struct {
	mu   sync.RWMutex
	vars *orderedmap.OrderedMap[string, string]
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{vars: orderedmap.New[string, string]()}
}

// CollectionOf builds a collection holding vars in the given order.
func CollectionOf(vars ...Variable) *Collection {
	c := NewCollection()
	for _, v := range vars {
		c.vars.Set(v.Key, v.Value)
	}
	return c
}

func (c *Collection) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vars.Get(key)
}

func (c *Collection) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set upserts key. An existing key keeps its position.
func (c *Collection) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (c *Collection) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.vars.Delete(key)
	return ok
}

// Rename moves the value of oldKey to newKey. It does nothing when oldKey is
// absent or the keys are equal; an existing newKey is overwritten.
func (c *Collection) Rename(oldKey, newKey string) bool {
	if oldKey == newKey {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vars.Get(oldKey)
	if !ok {
		return false
	}
	c.vars.Delete(oldKey)
	c.vars.Set(newKey, v)
	return true
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vars.Len()
}

// Keys returns the keys in insertion order.
func (c *Collection) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, c.vars.Len())
	for p := c.vars.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Variables returns a copy of every pair in insertion order.
func (c *Collection) Variables() []Variable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Variable, 0, c.vars.Len())
	for p := c.vars.Oldest(); p != nil; p = p.Next() {
		out = append(out, Variable{Key: p.Key, Value: p.Value})
	}
	return out
}

// Map returns a point-in-time copy.
func (c *Collection) Map() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, c.vars.Len())
	for p := c.vars.Oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value
	}
	return out
}

// Replace makes the collection hold exactly vars, editing in place so that
// surviving keys keep their order. New keys are appended in key order. It
// reports whether anything changed.
func (c *Collection) Replace(vars map[string]string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := false
	var stale []string
	for p := c.vars.Oldest(); p != nil; p = p.Next() {
		v, ok := vars[p.Key]
		if !ok {
			stale = append(stale, p.Key)
			continue
		}
		if v != p.Value {
			p.Value = v
			changed = true
		}
	}
	for _, k := range stale {
		c.vars.Delete(k)
		changed = true
	}
	var added []string
	for k := range vars {
		if _, ok := c.vars.Get(k); !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	for _, k := range added {
		c.vars.Set(k, vars[k])
		changed = true
	}
	return changed
}

// MarshalJSON encodes the collection as a JSON object in insertion order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vars.MarshalJSON()
}
