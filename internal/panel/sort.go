package panel

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SortRule orders the rows of a section.
type SortRule string

const (
	KeyAsc     SortRule = "key-asc"
	KeyDesc    SortRule = "key-desc"
	LengthAsc  SortRule = "length-asc"
	LengthDesc SortRule = "length-desc"
)

// SortRules lists every rule in cycling order.
var SortRules = []SortRule{KeyAsc, KeyDesc, LengthAsc, LengthDesc}

func ParseSortRule(raw string) (SortRule, error) {
	for _, r := range SortRules {
		if strings.EqualFold(raw, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown sort rule %q", raw)
}

func (r SortRule) Valid() bool {
	for _, known := range SortRules {
		if r == known {
			return true
		}
	}
	return false
}

// Next returns the rule after r in SortRules, wrapping around.
func (r SortRule) Next() SortRule {
	for i, known := range SortRules {
		if r == known {
			return SortRules[(i+1)%len(SortRules)]
		}
	}
	return KeyAsc
}

// Label is the short form shown in section titles.
func (r SortRule) Label() string {
	switch r {
	case KeyDesc:
		return "Z-A"
	case LengthAsc:
		return "short first"
	case LengthDesc:
		return "long first"
	default:
		return "A-Z"
	}
}

// Less reports whether key a sorts before key b. Length rules measure the
// key and break ties by ascending key.
func (r SortRule) Less(a, b string) bool {
	switch r {
	case KeyDesc:
		return a > b
	case LengthAsc, LengthDesc:
		la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		if la != lb {
			if r == LengthAsc {
				return la < lb
			}
			return la > lb
		}
		return a < b
	default:
		return a < b
	}
}
