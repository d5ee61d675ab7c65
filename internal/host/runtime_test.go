package host

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jask/vareditor/internal/database"
	"github.com/jask/vareditor/internal/database/repository"
)

type fixture struct {
	rt       *Runtime
	db       *sql.DB
	path     string
	settings *repository.SettingsRepo
	chats    *repository.ChatRepo
}

func newFixture(t *testing.T, seed func(f *fixture)) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vars.db")
	db, err := database.OpenMigrated(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.SeedDefaults(context.Background(), db))

	f := &fixture{
		db:       db,
		path:     path,
		settings: repository.NewSettingsRepo(db),
		chats:    repository.NewChatRepo(db),
	}
	if seed != nil {
		seed(f)
	}
	rt, err := Open(context.Background(), Options{
		Settings:     f.settings,
		Chats:        f.chats,
		DBPath:       path,
		SaveDebounce: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.saver.Cancel() })
	f.rt = rt
	return f
}

func (f *fixture) settingsDoc(t *testing.T) []byte {
	t.Helper()
	doc, err := f.settings.Load(context.Background(), repository.SettingsNamespace)
	require.NoError(t, err)
	return doc
}

func TestOpenRestoresActiveChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(f *fixture) {
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c1", Name: "One", Metadata: []byte(`{"variables":{"hp":"10","mp":"3"}}`)}))
		require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace,
			[]byte(`{"active_chat":"c1","variables":{"global":{"world":"earth"}},"st-variable-editor":{"isShown":true,"fontSize":1.5}}`)))
	})

	id, ok := f.rt.CurrentConversationID()
	require.True(t, ok)
	require.Equal(t, "c1", id)

	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	require.Equal(t, []string{"hp", "mp"}, local.Keys())

	global, err := f.rt.GlobalVariables()
	require.NoError(t, err)
	v, _ := global.Get("world")
	require.Equal(t, "earth", v)

	require.Equal(t, PanelSettings{IsShown: true, FontSize: 1.5}, f.rt.PanelSettings())
}

func TestOpenWithoutConversation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, ok := f.rt.CurrentConversationID()
	require.False(t, ok)

	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	require.Zero(t, local.Len())
	require.ErrorIs(t, f.rt.PersistLocal(context.Background()), ErrNoConversation)
	require.Equal(t, DefaultPanelSettings(), f.rt.PanelSettings())
}

func TestPersistLocalWritesMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(f *fixture) {
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c1", Name: "One", Metadata: []byte(`{"note":"keep","variables":{}}`)}))
		require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace, []byte(`{"active_chat":"c1"}`)))
	})

	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	local.Set("hp", "10")
	require.NoError(t, f.rt.PersistLocal(ctx))

	chat, err := f.chats.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "10", gjson.GetBytes(chat.Metadata, "variables.hp").String())
	require.Equal(t, "keep", gjson.GetBytes(chat.Metadata, "note").String())
}

func TestPersistLocalReportsMissingRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(f *fixture) {
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c1", Name: "One"}))
		require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace, []byte(`{"active_chat":"c1"}`)))
	})
	require.NoError(t, f.chats.Delete(ctx, "c1"))

	err := f.rt.PersistLocal(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestGlobalSaveIsDebounced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	global, err := f.rt.GlobalVariables()
	require.NoError(t, err)

	global.Set("world", "earth")
	f.rt.PersistGlobalDebounced()
	f.rt.PersistGlobalDebounced()
	require.True(t, f.rt.SavePending())
	require.False(t, gjson.GetBytes(f.settingsDoc(t), "variables.global.world").Exists())

	require.NoError(t, f.rt.Flush(ctx))
	require.False(t, f.rt.SavePending())
	require.Equal(t, "earth", gjson.GetBytes(f.settingsDoc(t), "variables.global.world").String())

	require.NoError(t, f.rt.Flush(ctx), "flush with nothing pending")
}

func TestDebouncedSaveFires(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.rt.saver.delay = 10 * time.Millisecond
	f.rt.SetPanelSettings(PanelSettings{IsShown: true, FontSize: 2})
	f.rt.PersistGlobalDebounced()

	require.Eventually(t, func() bool {
		return gjson.GetBytes(f.settingsDoc(t), "st-variable-editor.isShown").Bool()
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 2.0, gjson.GetBytes(f.settingsDoc(t), "st-variable-editor.fontSize").Float())
}

func TestConversationLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)

	var (
		mu     sync.Mutex
		events []ConversationChanged
	)
	unsubscribe := f.rt.Subscribe(func(ev ConversationChanged) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	first, err := f.rt.NewConversation(ctx, "First")
	require.NoError(t, err)
	require.Equal(t, "First", first.Name)
	_, ok := f.rt.CurrentConversationID()
	require.False(t, ok, "creating does not open")
	require.NoError(t, f.rt.OpenConversation(ctx, first.ID))
	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	local.Set("hp", "1")
	require.NoError(t, f.rt.PersistLocal(ctx))

	second, err := f.rt.NewConversation(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.NoError(t, f.rt.OpenConversation(ctx, second.ID))
	local, err = f.rt.LocalVariables()
	require.NoError(t, err)
	require.Zero(t, local.Len())
	require.Equal(t, second.ID, gjson.GetBytes(f.settingsDoc(t), "active_chat").String())

	require.NoError(t, f.rt.OpenConversation(ctx, first.ID))
	local, err = f.rt.LocalVariables()
	require.NoError(t, err)
	v, _ := local.Get("hp")
	require.Equal(t, "1", v)

	require.NoError(t, f.rt.OpenConversation(ctx, first.ID), "reopening is not a change")
	require.ErrorIs(t, f.rt.OpenConversation(ctx, "nope"), ErrConversationNotFound)

	require.NoError(t, f.rt.CloseConversation(ctx))
	_, ok = f.rt.CurrentConversationID()
	require.False(t, ok)
	require.False(t, gjson.GetBytes(f.settingsDoc(t), "active_chat").Exists())

	unsubscribe()
	require.NoError(t, f.rt.OpenConversation(ctx, second.ID))

	chats, err := f.rt.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []ConversationChanged{
		{Previous: "", Current: first.ID},
		{Previous: first.ID, Current: second.ID},
		{Previous: second.ID, Current: first.ID},
		{Previous: first.ID, Current: ""},
	}, events)
}

func TestLocalUnavailableWhileSwitching(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.rt.mu.Lock()
	f.rt.switching = true
	f.rt.mu.Unlock()

	_, err := f.rt.LocalVariables()
	require.ErrorIs(t, err, ErrStateUnavailable)
}

func TestReloadMergesExternalChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(f *fixture) {
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c1", Name: "One", Metadata: []byte(`{"variables":{"a":"1","b":"2"}}`)}))
		require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace,
			[]byte(`{"active_chat":"c1","variables":{"global":{"g":"1"}}}`)))
	})

	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	local.Set("mine", "unsaved")

	require.NoError(t, f.chats.SaveMetadata(ctx, "c1", []byte(`{"variables":{"a":"changed","c":"3"}}`)))
	require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace,
		[]byte(`{"active_chat":"c1","variables":{"global":{"g":"2","h":"new"}}}`)))
	require.NoError(t, f.rt.Reload(ctx))

	require.Equal(t, map[string]string{"a": "changed", "c": "3", "mine": "unsaved"}, local.Map())
	global, err := f.rt.GlobalVariables()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"g": "2", "h": "new"}, global.Map())
}

func TestReloadSkipsGlobalWhileSavePending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	global, err := f.rt.GlobalVariables()
	require.NoError(t, err)
	global.Set("g", "mine")
	f.rt.PersistGlobalDebounced()

	require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace,
		[]byte(`{"variables":{"global":{"other":"x"}}}`)))
	require.NoError(t, f.rt.Reload(ctx))
	require.Equal(t, map[string]string{"g": "mine"}, global.Map())
}

func TestReloadFollowsActiveChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(f *fixture) {
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c1", Name: "One"}))
		require.NoError(t, f.chats.Create(ctx, repository.Chat{ID: "c2", Name: "Two", Metadata: []byte(`{"variables":{"x":"y"}}`)}))
		require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace, []byte(`{"active_chat":"c1"}`)))
	})
	got := make(chan ConversationChanged, 1)
	f.rt.Subscribe(func(ev ConversationChanged) { got <- ev })

	require.NoError(t, f.settings.Save(ctx, repository.SettingsNamespace, []byte(`{"active_chat":"c2"}`)))
	require.NoError(t, f.rt.Reload(ctx))

	require.Equal(t, ConversationChanged{Previous: "c1", Current: "c2"}, <-got)
	local, err := f.rt.LocalVariables()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"x": "y"}, local.Map())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.rt.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	global, err := f.rt.GlobalVariables()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_ = f.settings.Save(context.Background(), repository.SettingsNamespace,
			[]byte(`{"variables":{"global":{"external":"yes"}}}`))
		v, _ := global.Get("external")
		return v == "yes"
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNotifyDropsWhenFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vars.db")
	db, err := database.OpenMigrated(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	rt, err := Open(ctx, Options{
		Settings:     repository.NewSettingsRepo(db),
		Chats:        repository.NewChatRepo(db),
		NotifyBuffer: 1,
	})
	require.NoError(t, err)

	rt.Notify(Success, "first")
	rt.Notify(Error, "second")
	n := <-rt.Notifications()
	require.Equal(t, Success, n.Kind)
	require.Equal(t, "first", n.Message)
	select {
	case extra := <-rt.Notifications():
		t.Fatalf("unexpected notification %q", extra.Message)
	default:
	}
}
