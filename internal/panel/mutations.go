package panel

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/variables"
)

// AddVariable creates key in scope. Input is trimmed and validated first;
// an invalid or duplicate key is reported to the user and changes nothing.
func (c *Controller) AddVariable(ctx context.Context, scope variables.Scope, key, value string) error {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if err := variables.Validate(key, value); err != nil {
		return c.reject(err)
	}

	c.mu.Lock()
	coll, err := c.store.All(scope)
	if err != nil {
		c.mu.Unlock()
		return c.readFailed(OpAdd, scope, err)
	}
	if coll.Has(key) {
		c.mu.Unlock()
		return c.reject(variables.DuplicateKey(key))
	}
	coll.Set(key, value)
	sec := c.sections[scope]
	if sec != nil {
		if _, ok := sec.byKey[key]; !ok {
			sec.insert(newRow(key, value))
		}
	}
	c.resync()
	c.mu.Unlock()
	c.signal()

	err = c.persist(ctx, scope, OpAdd, key, func() bool {
		if v, ok := coll.Get(key); ok && v == value {
			coll.Delete(key)
		}
		if c.sections[scope] != sec {
			return false
		}
		if sec != nil {
			sec.remove(key)
		}
		return true
	})
	if err != nil {
		return err
	}
	c.host.Notify(host.Success, "Variable added successfully!")
	return nil
}

// RenameVariable moves oldKey's value to newKey. The row keeps its identity.
func (c *Controller) RenameVariable(ctx context.Context, scope variables.Scope, oldKey, newKey string) error {
	newKey = strings.TrimSpace(newKey)
	if oldKey == newKey {
		return nil
	}
	if err := variables.ValidateKey(newKey); err != nil {
		return c.reject(err)
	}

	c.mu.Lock()
	coll, err := c.store.All(scope)
	if err != nil {
		c.mu.Unlock()
		return c.readFailed(OpRename, scope, err)
	}
	if !coll.Has(oldKey) {
		c.mu.Unlock()
		return fmt.Errorf("rename %q: %w", oldKey, ErrUnknownVariable)
	}
	if coll.Has(newKey) {
		c.mu.Unlock()
		return c.reject(variables.DuplicateKey(newKey))
	}
	coll.Rename(oldKey, newKey)
	sec := c.sections[scope]
	if sec != nil && sec.rekey(oldKey, newKey) == nil {
		c.rebuildAfterDrift(scope)
		sec = c.sections[scope]
	}
	c.resync()
	c.mu.Unlock()
	c.signal()

	return c.persist(ctx, scope, OpRename, newKey, func() bool {
		if !coll.Has(oldKey) && coll.Has(newKey) {
			coll.Rename(newKey, oldKey)
		}
		if c.sections[scope] != sec {
			return false
		}
		if sec != nil {
			sec.rekey(newKey, oldKey)
		}
		return true
	})
}

// EditValue replaces the value of an existing key.
func (c *Controller) EditValue(ctx context.Context, scope variables.Scope, key, value string) error {
	if err := variables.ValidateValueLength(value); err != nil {
		return c.reject(err)
	}

	c.mu.Lock()
	coll, err := c.store.All(scope)
	if err != nil {
		c.mu.Unlock()
		return c.readFailed(OpEdit, scope, err)
	}
	old, ok := coll.Get(key)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("edit %q: %w", key, ErrUnknownVariable)
	}
	if old == value {
		c.mu.Unlock()
		return nil
	}
	coll.Set(key, value)
	sec := c.sections[scope]
	if sec != nil {
		if r, ok := sec.byKey[key]; ok {
			r.Value = value
		} else {
			c.rebuildAfterDrift(scope)
			sec = c.sections[scope]
		}
	}
	c.resync()
	c.mu.Unlock()
	c.signal()

	return c.persist(ctx, scope, OpEdit, key, func() bool {
		if v, ok := coll.Get(key); ok && v == value {
			coll.Set(key, old)
		}
		if c.sections[scope] != sec {
			return false
		}
		if sec != nil {
			if r, ok := sec.byKey[key]; ok && r.Value == value {
				r.Value = old
			}
		}
		return true
	})
}

// DeleteVariable removes key in two steps. The first call arms the row and
// returns false; the next call on the same armed row deletes it and returns
// true.
func (c *Controller) DeleteVariable(ctx context.Context, scope variables.Scope, key string) (bool, error) {
	c.mu.Lock()
	sec := c.sections[scope]
	if !c.mounted || sec == nil {
		c.mu.Unlock()
		return false, ErrNotMounted
	}
	r, ok := sec.byKey[key]
	if !ok {
		c.mu.Unlock()
		return false, fmt.Errorf("delete %q: %w", key, ErrUnknownVariable)
	}
	if !r.Confirming {
		r.Confirming = true
		c.mu.Unlock()
		c.signal()
		return false, nil
	}

	coll, err := c.store.All(scope)
	if err != nil {
		c.mu.Unlock()
		return false, c.readFailed(OpDelete, scope, err)
	}
	old, existed := coll.Get(key)
	coll.Delete(key)
	sec.remove(key)
	c.stopTimer(r.ID)
	c.resync()
	c.mu.Unlock()
	c.signal()

	err = c.persist(ctx, scope, OpDelete, key, func() bool {
		if !existed || coll.Has(key) {
			return c.sections[scope] == sec
		}
		coll.Set(key, old)
		if c.sections[scope] != sec {
			return false
		}
		r.Confirming = false
		r.Flashing = false
		sec.insert(r)
		return true
	})
	if err != nil {
		return false, err
	}
	c.host.Notify(host.Success, "Variable deleted successfully!")
	return true, nil
}

// persist saves scope after a mutation. c.mu must not be held. A Local
// failure runs rollback under the lock and is returned as a
// *PersistenceError. rollback reports whether it could restore the rows it
// touched; if not the section is rebuilt.
func (c *Controller) persist(ctx context.Context, scope variables.Scope, op Op, key string, rollback func() bool) error {
	if scope == variables.Global {
		c.host.PersistGlobalDebounced()
		return nil
	}
	err := c.host.PersistLocal(ctx)
	if err == nil {
		return nil
	}
	c.mu.Lock()
	if !rollback() && c.mounted {
		c.rebuildAfterDrift(scope)
	}
	c.resync()
	c.mu.Unlock()
	c.signal()

	perr := &PersistenceError{Scope: scope, Op: op, Key: key, Err: err}
	c.log.Error("save local variables failed", zap.String("op", string(op)), zap.String("key", key), zap.Error(err))
	c.host.Notify(host.Error, op.failureMessage())
	return perr
}

// rebuildAfterDrift handles a mutation whose row was missing, which means the
// collection changed since the last tick. c.mu is held.
func (c *Controller) rebuildAfterDrift(scope variables.Scope) {
	if err := c.rebuild(scope); err != nil {
		c.log.Warn("rebuild after drift failed", zap.Stringer("scope", scope), zap.Error(err))
		c.engine.Invalidate(scope)
	}
}

func (c *Controller) reject(err error) error {
	c.host.Notify(host.Error, err.Error())
	return err
}

func (c *Controller) readFailed(op Op, scope variables.Scope, err error) error {
	c.log.Warn("read variables failed", zap.String("op", string(op)), zap.Stringer("scope", scope), zap.Error(err))
	c.host.Notify(host.Error, op.failureMessage())
	return fmt.Errorf("%s %s variable: %w", op, scope, err)
}
