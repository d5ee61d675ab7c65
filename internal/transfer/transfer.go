// Package transfer moves variables in and out of TOML files.
package transfer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/jask/vareditor/internal/variables"
)

// Document is the file layout: one table per scope.
type Document struct {
	Local  map[string]string `toml:"local"`
	Global map[string]string `toml:"global"`
}

func (d Document) scope(s variables.Scope) map[string]string {
	if s == variables.Local {
		return d.Local
	}
	return d.Global
}

// Validate checks every variable, scope by scope in key order, and reports
// the first failure.
func (d Document) Validate() error {
	for _, scope := range variables.Scopes {
		vars := d.scope(scope)
		for _, k := range sortedKeys(vars) {
			if err := variables.Validate(k, vars[k]); err != nil {
				return fmt.Errorf("%s variable %q: %w", scope, k, err)
			}
		}
	}
	return nil
}

// Len counts variables across both scopes.
func (d Document) Len() int { return len(d.Local) + len(d.Global) }

// Collect reads both scopes from store.
func Collect(store *variables.Store) (Document, error) {
	var d Document
	for _, scope := range variables.Scopes {
		c, err := store.All(scope)
		if err != nil {
			return Document{}, fmt.Errorf("read %s variables: %w", scope, err)
		}
		if scope == variables.Local {
			d.Local = c.Map()
		} else {
			d.Global = c.Map()
		}
	}
	return d, nil
}

// Apply upserts every variable of d into store. Nothing is persisted.
func Apply(store *variables.Store, d Document) error {
	for _, scope := range variables.Scopes {
		vars := d.scope(scope)
		for _, k := range sortedKeys(vars) {
			if err := store.Set(scope, k, vars[k]); err != nil {
				return fmt.Errorf("set %s variable %q: %w", scope, k, err)
			}
		}
	}
	return nil
}

// Export writes d to path, replacing any existing file atomically.
func Export(path string, d Document) error {
	if d.Local == nil {
		d.Local = map[string]string{}
	}
	if d.Global == nil {
		d.Global = map[string]string{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(d); err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Import reads and validates path.
func Import(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var d Document
	md, err := toml.Decode(string(data), &d)
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Document{}, fmt.Errorf("decode %s: unexpected key %s", filepath.Base(path), undecoded[0])
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
