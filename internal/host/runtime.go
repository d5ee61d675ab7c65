package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/variables"
)

const (
	DefaultSaveDebounce = time.Second
	defaultNotifyBuffer = 32
)

// Options configure a Runtime.
type Options struct {
	Settings *repository.SettingsRepo
	Chats    *repository.ChatRepo
	// DBPath enables Watch; leave empty to disable external reloads.
	DBPath       string
	SaveDebounce time.Duration
	Logger       *zap.Logger
	NotifyBuffer int
}

// Runtime is a sqlite-backed host for the variable panel.
type Runtime struct {
	settings *repository.SettingsRepo
	chats    *repository.ChatRepo
	dbPath   string
	log      *zap.Logger

	mu          sync.Mutex
	settingsDoc []byte
	global      *variables.Collection
	globalBase  map[string]string
	panel       PanelSettings
	chat        *repository.Chat
	local       *variables.Collection
	localBase   map[string]string
	switching   bool

	saver *debouncer

	subsMu  sync.Mutex
	subs    map[int]func(ConversationChanged)
	nextSub int

	notes chan Notification
}

// Open loads the settings document and reopens the conversation that was
// active when the settings were last saved.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Settings == nil || opts.Chats == nil {
		return nil, fmt.Errorf("host: settings and chats repositories are required")
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = DefaultSaveDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NotifyBuffer <= 0 {
		opts.NotifyBuffer = defaultNotifyBuffer
	}
	r := &Runtime{
		settings: opts.Settings,
		chats:    opts.Chats,
		dbPath:   opts.DBPath,
		log:      opts.Logger,
		local:    variables.NewCollection(),
		subs:     map[int]func(ConversationChanged){},
		notes:    make(chan Notification, opts.NotifyBuffer),
	}
	r.saver = newDebouncer(opts.SaveDebounce, r.debouncedSave)

	doc, err := r.settings.Load(ctx, repository.SettingsNamespace)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	r.settingsDoc = doc
	r.global = collectionAt(doc, repository.GlobalVariablesPath)
	r.globalBase = r.global.Map()
	r.panel = readPanelSettings(doc)

	if id := gjson.GetBytes(doc, repository.ActiveChatPath).String(); id != "" {
		chat, err := r.chats.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load active chat %s: %w", id, err)
		}
		if chat == nil {
			r.log.Warn("active chat no longer exists", zap.String("chat", id))
		} else {
			r.chat = chat
			r.local = collectionAt(chat.Metadata, repository.ChatVariablesPath)
			r.localBase = r.local.Map()
		}
	}
	r.log.Info("host opened",
		zap.String("chat", r.currentID()),
		zap.Int("global_vars", r.global.Len()),
		zap.Int("local_vars", r.local.Len()))
	return r, nil
}

// CurrentConversationID reports the active conversation, if any.
func (r *Runtime) CurrentConversationID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.currentID()
	return id, id != ""
}

// CurrentConversation returns a copy of the active chat row.
func (r *Runtime) CurrentConversation() (repository.Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chat == nil {
		return repository.Chat{}, false
	}
	return *r.chat, true
}

func (r *Runtime) currentID() string {
	if r.chat == nil {
		return ""
	}
	return r.chat.ID
}

// LocalVariables returns the active conversation's live collection. With no
// conversation it is an empty collection that cannot be saved.
func (r *Runtime) LocalVariables() (*variables.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.switching {
		return nil, ErrStateUnavailable
	}
	return r.local, nil
}

// GlobalVariables returns the process-wide live collection.
func (r *Runtime) GlobalVariables() (*variables.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global, nil
}

func (r *Runtime) PanelSettings() PanelSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.panel
}

// SetPanelSettings updates the settings in memory. Callers follow up with
// PersistGlobalDebounced.
func (r *Runtime) SetPanelSettings(ps PanelSettings) {
	if ps.FontSize <= 0 {
		ps.FontSize = 1.0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panel = ps
}

// Subscribe registers fn for conversation changes. Handlers run on the
// goroutine that switched the conversation, after the switch is complete.
func (r *Runtime) Subscribe(fn func(ConversationChanged)) (unsubscribe func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Runtime) publish(ev ConversationChanged) {
	r.subsMu.Lock()
	handlers := make([]func(ConversationChanged), 0, len(r.subs))
	for _, fn := range r.subs {
		handlers = append(handlers, fn)
	}
	r.subsMu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// Notify queues a message for the user. Messages are dropped when nobody
// drains Notifications fast enough.
func (r *Runtime) Notify(kind NotificationKind, message string) {
	n := Notification{Kind: kind, Message: message, At: time.Now()}
	if kind == Error {
		r.log.Warn("notify", zap.String("kind", string(kind)), zap.String("message", message))
	} else {
		r.log.Info("notify", zap.String("kind", string(kind)), zap.String("message", message))
	}
	select {
	case r.notes <- n:
	default:
		r.log.Debug("notification dropped", zap.String("message", message))
	}
}

// Notifications delivers queued user messages.
func (r *Runtime) Notifications() <-chan Notification { return r.notes }
