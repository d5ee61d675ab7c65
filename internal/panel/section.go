package panel

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jask/vareditor/internal/variables"
)

// DisplayItem is one rendered row. ID is stable for the life of the row even
// when its key is renamed.
type DisplayItem struct {
	ID    string
	Key   string
	Value string
	// Flashing marks a value that just changed under the user.
	Flashing bool
	// Confirming is set after the first delete request.
	Confirming bool
}

type row struct {
	DisplayItem
	flashSeq uint64
}

type section struct {
	scope variables.Scope
	rule  SortRule
	rows  []*row
	byKey map[string]*row
}

func newSection(scope variables.Scope, rule SortRule, vars []variables.Variable) *section {
	s := &section{
		scope: scope,
		rule:  rule,
		rows:  make([]*row, 0, len(vars)),
		byKey: make(map[string]*row, len(vars)),
	}
	for _, v := range vars {
		r := newRow(v.Key, v.Value)
		s.rows = append(s.rows, r)
		s.byKey[v.Key] = r
	}
	s.resort()
	return s
}

func newRow(key, value string) *row {
	return &row{DisplayItem: DisplayItem{ID: uuid.NewString(), Key: key, Value: value}}
}

func (s *section) resort() {
	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.rule.Less(s.rows[i].Key, s.rows[j].Key)
	})
}

// insert places r at its sorted position.
func (s *section) insert(r *row) {
	i := sort.Search(len(s.rows), func(i int) bool {
		return s.rule.Less(r.Key, s.rows[i].Key)
	})
	s.rows = append(s.rows, nil)
	copy(s.rows[i+1:], s.rows[i:])
	s.rows[i] = r
	s.byKey[r.Key] = r
}

func (s *section) remove(key string) *row {
	r, ok := s.byKey[key]
	if !ok {
		return nil
	}
	delete(s.byKey, key)
	for i, candidate := range s.rows {
		if candidate == r {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			break
		}
	}
	return r
}

// rekey rebinds the row at oldKey to newKey and moves it into place.
func (s *section) rekey(oldKey, newKey string) *row {
	r, ok := s.byKey[oldKey]
	if !ok {
		return nil
	}
	delete(s.byKey, oldKey)
	r.Key = newKey
	s.byKey[newKey] = r
	s.resort()
	return r
}

func (s *section) items() []DisplayItem {
	out := make([]DisplayItem, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.DisplayItem
	}
	return out
}
