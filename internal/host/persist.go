package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/database/repository"
)

const saveTimeout = 10 * time.Second

// PersistLocal writes the local collection into the active conversation's
// metadata document.
func (r *Runtime) PersistLocal(ctx context.Context) error {
	r.mu.Lock()
	if r.chat == nil {
		r.mu.Unlock()
		return ErrNoConversation
	}
	id := r.chat.ID
	snapshot := r.local.Map()
	meta, err := writeVariables(r.chat.Metadata, repository.ChatVariablesPath, r.local)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := r.chats.SaveMetadata(ctx, id, meta); err != nil {
		return fmt.Errorf("save chat %s metadata: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chat != nil && r.chat.ID == id {
		r.chat.Metadata = meta
		r.localBase = snapshot
	}
	return nil
}

// PersistGlobalDebounced schedules a settings save. Rapid calls coalesce and
// failures are only logged.
func (r *Runtime) PersistGlobalDebounced() {
	r.saver.Trigger()
}

// SavePending reports whether a debounced settings save is scheduled.
func (r *Runtime) SavePending() bool { return r.saver.Pending() }

// Flush performs a scheduled settings save immediately.
func (r *Runtime) Flush(ctx context.Context) error {
	if !r.saver.Cancel() {
		return nil
	}
	return r.SaveSettings(ctx)
}

// SaveSettings writes the settings document now.
func (r *Runtime) SaveSettings(ctx context.Context) error {
	r.mu.Lock()
	snapshot := r.global.Map()
	doc, err := r.renderSettings()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	if err := r.settings.Save(ctx, repository.SettingsNamespace, doc); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	r.mu.Lock()
	r.settingsDoc = doc
	r.globalBase = snapshot
	r.mu.Unlock()
	return nil
}

// renderSettings folds live state into the settings document. r.mu is held.
func (r *Runtime) renderSettings() ([]byte, error) {
	doc, err := writeVariables(r.settingsDoc, repository.GlobalVariablesPath, r.global)
	if err != nil {
		return nil, err
	}
	if doc, err = writePanelSettings(doc, r.panel); err != nil {
		return nil, err
	}
	return writeActiveChat(doc, r.currentID())
}

func (r *Runtime) debouncedSave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.SaveSettings(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error("debounced settings save failed", zap.Error(err))
		return
	}
	r.log.Debug("settings saved")
}
