package panel

import (
	"errors"
	"fmt"

	"github.com/jask/vareditor/internal/variables"
)

var (
	// ErrUnknownVariable is returned when a mutation names a key the scope
	// does not hold.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrNotMounted is returned by DeleteVariable when there is no row to
	// arm for confirmation.
	ErrNotMounted = errors.New("panel is not shown")
)

// Op names a user mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpRename Op = "rename"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

func (op Op) failureMessage() string {
	switch op {
	case OpAdd:
		return "Failed to add variable. Please try again."
	case OpRename:
		return "Failed to update variable name. Please try again."
	case OpEdit:
		return "Failed to update variable value. Please try again."
	default:
		return "Failed to delete variable. Please try again."
	}
}

// PersistenceError reports a failed save of the Local scope. The in-memory
// change has been rolled back by the time it is returned.
type PersistenceError struct {
	Scope variables.Scope
	Op    Op
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s variable %q: %v", e.Op, e.Scope, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
