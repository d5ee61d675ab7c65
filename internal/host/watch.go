package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jask/vareditor/internal/database/repository"
)

const reloadDelay = 150 * time.Millisecond

// Reload merges changes another process wrote to the database into the live
// collections. Keys the other process did not touch keep their in-memory
// values, and a changed active chat is switched to. Global state is left
// alone while a debounced save is pending.
func (r *Runtime) Reload(ctx context.Context) error {
	doc, err := r.settings.Load(ctx, repository.SettingsNamespace)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	storedGlobal := readVariables(doc, repository.GlobalVariablesPath)
	activeID := gjson.GetBytes(doc, repository.ActiveChatPath).String()

	r.mu.Lock()
	if !r.saver.Pending() {
		applyExternal(r.global, r.globalBase, storedGlobal)
		r.globalBase = storedGlobal
		r.settingsDoc = doc
		r.panel = readPanelSettings(doc)
	}
	current := r.currentID()
	localBase := r.localBase
	r.mu.Unlock()

	if activeID != current {
		ev, changed, err := r.switchTo(ctx, activeID)
		if errors.Is(err, ErrConversationNotFound) {
			r.log.Warn("external active chat missing", zap.String("chat", activeID))
			return nil
		}
		if err != nil {
			return err
		}
		if changed {
			r.publish(ev)
		}
		return nil
	}
	if current == "" {
		return nil
	}

	chat, err := r.chats.Get(ctx, current)
	if err != nil {
		return fmt.Errorf("load chat %s: %w", current, err)
	}
	if chat == nil {
		ev, changed, err := r.switchTo(ctx, "")
		if err != nil {
			return err
		}
		if changed {
			r.publish(ev)
		}
		return nil
	}
	storedLocal := readVariables(chat.Metadata, repository.ChatVariablesPath)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentID() != current {
		return nil
	}
	applyExternal(r.local, localBase, storedLocal)
	r.localBase = storedLocal
	r.chat.Name = chat.Name
	r.chat.Metadata = chat.Metadata
	return nil
}

// Watch reloads whenever the database file or its journal changes. It
// returns when ctx is done.
func (r *Runtime) Watch(ctx context.Context) error {
	if r.dbPath == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	dir, base := filepath.Split(r.dbPath)
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	reload := newDebouncer(reloadDelay, func() {
		if err := r.Reload(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("reload after external change", zap.Error(err))
		}
	})
	defer reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				reload.Trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// Run watches for external changes until ctx is done, then writes any
// pending settings save.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Watch(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		flushCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return r.Flush(flushCtx)
	})
	return g.Wait()
}

// Close writes any pending settings save.
func (r *Runtime) Close(ctx context.Context) error {
	return r.Flush(ctx)
}
