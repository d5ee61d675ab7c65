package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/vareditor/internal/variables"
)

func TestReadVariablesKeepsNonStringText(t *testing.T) {
	t.Parallel()

	got := readVariables([]byte(`{"variables":{"s":"x","n":5,"o":{"a":1}}}`), "variables")
	require.Equal(t, map[string]string{"s": "x", "n": "5", "o": `{"a":1}`}, got)
	require.Empty(t, readVariables([]byte(`{"variables":"nope"}`), "variables"))
	require.Empty(t, readVariables(nil, "variables"))
}

func TestCollectionAtKeepsDocumentOrder(t *testing.T) {
	t.Parallel()

	c := collectionAt([]byte(`{"v":{"z":"1","a":"2","m":"3"}}`), "v")
	require.Equal(t, []string{"z", "a", "m"}, c.Keys())
}

func TestWriteVariablesPreservesSiblings(t *testing.T) {
	t.Parallel()

	doc, err := writeVariables([]byte(`{"note":"x","variables":{"old":"1"}}`), "variables",
		variables.CollectionOf(variables.Variable{Key: "new", Value: "2"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"note":"x","variables":{"new":"2"}}`, string(doc))

	doc, err = writeVariables(nil, "variables.global", variables.NewCollection())
	require.NoError(t, err)
	require.JSONEq(t, `{"variables":{"global":{}}}`, string(doc))
}

func TestPanelSettingsDocument(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultPanelSettings(), readPanelSettings(nil))
	require.Equal(t, PanelSettings{IsShown: true, FontSize: 1}, readPanelSettings([]byte(`{"st-variable-editor":{"isShown":true,"fontSize":0}}`)))

	doc, err := writePanelSettings([]byte(`{}`), PanelSettings{IsShown: true, FontSize: 1.25})
	require.NoError(t, err)
	require.Equal(t, PanelSettings{IsShown: true, FontSize: 1.25}, readPanelSettings(doc))

	doc, err = writeActiveChat(doc, "c1")
	require.NoError(t, err)
	doc, err = writeActiveChat(doc, "")
	require.NoError(t, err)
	require.JSONEq(t, `{"st-variable-editor":{"isShown":true,"fontSize":1.25}}`, string(doc))
}

func TestApplyExternal(t *testing.T) {
	t.Parallel()

	live := variables.CollectionOf(
		variables.Variable{Key: "same", Value: "1"},
		variables.Variable{Key: "edited", Value: "mine"},
		variables.Variable{Key: "gone", Value: "x"},
		variables.Variable{Key: "unsaved", Value: "u"},
	)
	base := map[string]string{"same": "1", "edited": "old", "gone": "x"}
	stored := map[string]string{"same": "1", "edited": "old", "b": "2", "a": "1"}

	applyExternal(live, base, stored)
	require.Equal(t, []string{"same", "edited", "unsaved", "a", "b"}, live.Keys())
	v, _ := live.Get("edited")
	require.Equal(t, "mine", v, "in-memory edit survives when the database did not change the key")
}
