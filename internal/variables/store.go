package variables

// Source supplies the live collection for each scope. Implementations may
// fail transiently, for example while the active conversation is swapped.
type Source interface {
	LocalVariables() (*Collection, error)
	GlobalVariables() (*Collection, error)
}

// Store gives scope-uniform access to the host collections. It never
// persists anything; saving is the caller's job because the two scopes use
// different host calls.
type Store struct {
	src Source
}

func NewStore(src Source) *Store {
	return &Store{src: src}
}

// All returns the live collection for scope. No copy is made.
func (s *Store) All(scope Scope) (*Collection, error) {
	if scope == Local {
		return s.src.LocalVariables()
	}
	return s.src.GlobalVariables()
}

// Get reads one value.
func (s *Store) Get(scope Scope, key string) (string, bool, error) {
	c, err := s.All(scope)
	if err != nil {
		return "", false, err
	}
	v, ok := c.Get(key)
	return v, ok, nil
}

// Set upserts key in scope.
func (s *Store) Set(scope Scope, key, value string) error {
	c, err := s.All(scope)
	if err != nil {
		return err
	}
	c.Set(key, value)
	return nil
}

// Delete removes key from scope. A missing key is not an error.
func (s *Store) Delete(scope Scope, key string) error {
	c, err := s.All(scope)
	if err != nil {
		return err
	}
	c.Delete(key)
	return nil
}

// Rename moves the value at oldKey to newKey. Collision checks belong to the
// caller; a missing oldKey or oldKey == newKey is a no-op.
func (s *Store) Rename(scope Scope, oldKey, newKey string) error {
	c, err := s.All(scope)
	if err != nil {
		return err
	}
	c.Rename(oldKey, newKey)
	return nil
}
