package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/variables"
)

// Conversations lists stored chats, most recently updated first.
func (r *Runtime) Conversations(ctx context.Context) ([]repository.Chat, error) {
	return r.chats.List(ctx)
}

// NewConversation stores an empty chat. It does not open it.
func (r *Runtime) NewConversation(ctx context.Context, name string) (repository.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Chat " + uuid.NewString()[:8]
	}
	chat := repository.Chat{ID: uuid.NewString(), Name: name, Metadata: []byte(`{"variables":{}}`)}
	if err := r.chats.Create(ctx, chat); err != nil {
		return repository.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	stored, err := r.chats.Get(ctx, chat.ID)
	if err != nil {
		return repository.Chat{}, fmt.Errorf("load chat %s: %w", chat.ID, err)
	}
	if stored == nil {
		return repository.Chat{}, fmt.Errorf("%w: %s", ErrConversationNotFound, chat.ID)
	}
	return *stored, nil
}

// OpenConversation makes id the active conversation. Subscribers are told
// after the new local collection is in place.
func (r *Runtime) OpenConversation(ctx context.Context, id string) error {
	ev, changed, err := r.switchTo(ctx, id)
	if err != nil {
		return err
	}
	if err := r.SaveSettings(ctx); err != nil {
		r.log.Error("persist active chat", zap.Error(err))
	}
	if changed {
		r.publish(ev)
	}
	return nil
}

// CloseConversation leaves no conversation active.
func (r *Runtime) CloseConversation(ctx context.Context) error {
	ev, changed, err := r.switchTo(ctx, "")
	if err != nil {
		return err
	}
	if err := r.SaveSettings(ctx); err != nil {
		r.log.Error("persist active chat", zap.Error(err))
	}
	if changed {
		r.publish(ev)
	}
	return nil
}

// switchTo swaps the local collection. LocalVariables reports
// ErrStateUnavailable while the chat row is loading.
func (r *Runtime) switchTo(ctx context.Context, id string) (ConversationChanged, bool, error) {
	r.mu.Lock()
	prev := r.currentID()
	r.switching = true
	r.mu.Unlock()

	var (
		chat *repository.Chat
		err  error
	)
	if id != "" {
		chat, err = r.chats.Get(ctx, id)
		if err == nil && chat == nil {
			err = fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.switching = false
	if err != nil {
		return ConversationChanged{}, false, err
	}
	if chat == nil {
		r.chat = nil
		r.local = variables.NewCollection()
		r.localBase = nil
	} else {
		r.chat = chat
		r.local = collectionAt(chat.Metadata, repository.ChatVariablesPath)
		r.localBase = r.local.Map()
	}
	r.log.Info("conversation switched", zap.String("from", prev), zap.String("to", id))
	return ConversationChanged{Previous: prev, Current: id}, prev != id, nil
}
