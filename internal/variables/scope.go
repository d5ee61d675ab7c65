package variables

import (
	"fmt"
	"strings"
)

// Scope selects one of the two variable collections.
type Scope int

const (
	// Local variables live in the active conversation's metadata.
	Local Scope = iota
	// Global variables live in the application settings.
	Global
)

// Scopes lists every scope in display order.
var Scopes = []Scope{Local, Global}

func (s Scope) String() string {
	switch s {
	case Local:
		return "local"
	case Global:
		return "global"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Title is the section heading used by renderers.
func (s Scope) Title() string {
	switch s {
	case Local:
		return "Local Variables"
	case Global:
		return "Global Variables"
	default:
		return s.String()
	}
}

// ParseScope accepts "local" or "global" in any case.
func ParseScope(raw string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local":
		return Local, nil
	case "global":
		return Global, nil
	default:
		return 0, fmt.Errorf("unknown scope %q (want local or global)", raw)
	}
}
