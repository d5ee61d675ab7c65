package host

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/variables"
)

// readVariables decodes the object at path. Non-string values written by
// other tools are kept in their JSON text form.
func readVariables(doc []byte, path string) map[string]string {
	out := map[string]string{}
	obj := gjson.GetBytes(doc, path)
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String {
			out[k.String()] = v.String()
		} else {
			out[k.String()] = v.Raw
		}
		return true
	})
	return out
}

// collectionAt builds a collection from the object at path in document order.
func collectionAt(doc []byte, path string) *variables.Collection {
	c := variables.NewCollection()
	obj := gjson.GetBytes(doc, path)
	if !obj.IsObject() {
		return c
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String {
			c.Set(k.String(), v.String())
		} else {
			c.Set(k.String(), v.Raw)
		}
		return true
	})
	return c
}

func writeVariables(doc []byte, path string, c *variables.Collection) ([]byte, error) {
	raw, err := c.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	return sjson.SetRawBytes(emptyIfNil(doc), path, raw)
}

func readPanelSettings(doc []byte) PanelSettings {
	ps := DefaultPanelSettings()
	raw := gjson.GetBytes(doc, repository.PanelSettingsPath)
	if raw.IsObject() {
		_ = json.Unmarshal([]byte(raw.Raw), &ps)
	}
	if ps.FontSize <= 0 {
		ps.FontSize = 1.0
	}
	return ps
}

func writePanelSettings(doc []byte, ps PanelSettings) ([]byte, error) {
	raw, err := json.Marshal(ps)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(emptyIfNil(doc), repository.PanelSettingsPath, raw)
}

func writeActiveChat(doc []byte, id string) ([]byte, error) {
	if id == "" {
		return sjson.DeleteBytes(emptyIfNil(doc), repository.ActiveChatPath)
	}
	return sjson.SetBytes(emptyIfNil(doc), repository.ActiveChatPath, id)
}

func emptyIfNil(doc []byte) []byte {
	if len(doc) == 0 {
		return []byte("{}")
	}
	return doc
}

// applyExternal carries changes made in the database since base into live,
// leaving keys the database did not touch alone so in-memory edits that are
// not yet saved survive.
func applyExternal(live *variables.Collection, base, stored map[string]string) {
	keys := make([]string, 0, len(stored))
	for k := range stored {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if old, ok := base[k]; !ok || old != stored[k] {
			live.Set(k, stored[k])
		}
	}
	for k := range base {
		if _, ok := stored[k]; !ok {
			live.Delete(k)
		}
	}
}
