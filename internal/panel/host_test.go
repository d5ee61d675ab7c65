package panel

import (
	"context"
	"sync"

	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/variables"
)

// fakeHost is an in-memory Host with injectable failures.
type fakeHost struct {
	mu          sync.Mutex
	conv        string
	local       *variables.Collection
	global      *variables.Collection
	localErr    error
	failLocalIn int // the failLocalIn-th next LocalVariables call fails
	persistErr  error
	localSaves  int
	globalSaves int
	notes       []host.Notification
	settings    host.PanelSettings
	subs        map[int]func(host.ConversationChanged)
	nextSub     int
}

func newFakeHost(local, global map[string]string) *fakeHost {
	h := &fakeHost{
		conv:     "chat-1",
		local:    variables.NewCollection(),
		global:   variables.NewCollection(),
		settings: host.DefaultPanelSettings(),
		subs:     map[int]func(host.ConversationChanged){},
	}
	h.local.Replace(local)
	h.global.Replace(global)
	return h
}

func (h *fakeHost) CurrentConversationID() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conv, h.conv != ""
}

func (h *fakeHost) LocalVariables() (*variables.Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.localErr != nil {
		return nil, h.localErr
	}
	if h.failLocalIn > 0 {
		h.failLocalIn--
		if h.failLocalIn == 0 {
			return nil, host.ErrStateUnavailable
		}
	}
	return h.local, nil
}

func (h *fakeHost) GlobalVariables() (*variables.Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.global, nil
}

func (h *fakeHost) PersistLocal(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localSaves++
	return h.persistErr
}

func (h *fakeHost) PersistGlobalDebounced() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.globalSaves++
}

func (h *fakeHost) Subscribe(fn func(host.ConversationChanged)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *fakeHost) Notify(kind host.NotificationKind, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, host.Notification{Kind: kind, Message: message})
}

func (h *fakeHost) PanelSettings() host.PanelSettings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

func (h *fakeHost) SetPanelSettings(ps host.PanelSettings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings = ps
}

// switchTo swaps in a new local collection and tells subscribers.
func (h *fakeHost) switchTo(id string, local map[string]string) {
	h.mu.Lock()
	ev := host.ConversationChanged{Previous: h.conv, Current: id}
	h.conv = id
	h.local = variables.NewCollection()
	h.local.Replace(local)
	subs := make([]func(host.ConversationChanged), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (h *fakeHost) lastNote() host.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notes) == 0 {
		return host.Notification{}
	}
	return h.notes[len(h.notes)-1]
}

// failLocalRead makes the nth LocalVariables call from now fail once.
func (h *fakeHost) failLocalRead(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failLocalIn = n
}

func (h *fakeHost) setPersistErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.persistErr = err
}

func (h *fakeHost) saves() (local, global int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.localSaves, h.globalSaves
}
